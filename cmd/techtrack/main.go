package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"techtrack-backend/config"
	"techtrack-backend/internal/inventory"
	"techtrack-backend/internal/model"
	"techtrack-backend/internal/parse"
	"techtrack-backend/internal/qrtag"
	"techtrack-backend/internal/record"
	"techtrack-backend/internal/roster"
	"techtrack-backend/internal/tabular"
	"techtrack-backend/internal/triage"
)

// techtrack is the ops CLI. It talks straight to the upstream table store
// through the same engines the service uses, so a technician at a terminal
// and a technician in the web UI go through identical lifecycle checks.

var (
	flagConfig string
	flagAs     string

	flagCategory   string
	flagLocation   string
	flagNotes      string
	flagStatus     string
	flagDesc       string
	flagPriority   string
	flagResolution string
	flagOut        string
	flagSeedDemo   bool
)

type env struct {
	cfg     *config.Config
	store   record.Store
	items   *inventory.Engine
	reports *triage.Engine
	roster  *roster.Roster
}

func newEnv() (*env, error) {
	_ = godotenv.Load()

	path := flagConfig
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "./config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}

	store := record.NewStore(tabular.NewClient(cfg.Upstream))
	return &env{
		cfg:     cfg,
		store:   store,
		items:   inventory.NewEngine(store),
		reports: triage.NewEngine(store),
		roster:  roster.New(store),
	}, nil
}

// actor resolves --as against the roster, optionally requiring the
// technician role. Lifecycle writes are always attributed to a real person.
func (e *env) actor(ctx context.Context, needTechnician bool) (model.User, error) {
	if flagAs == "" {
		return model.User{}, fmt.Errorf("pass --as with your roster name")
	}
	user, err := e.roster.FindByName(ctx, flagAs)
	if err != nil {
		return model.User{}, err
	}
	if needTechnician && user.Role != model.RoleTechnician {
		return model.User{}, fmt.Errorf("%s has role %s; this operation needs a technician", user.Name, user.Role)
	}
	return user, nil
}

func cmdCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

var rootCmd = &cobra.Command{
	Use:           "techtrack",
	Short:         "Equipment tracking operations against the upstream table store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Write table headers and optionally seed the demo roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		ctx, cancel := cmdCtx()
		defer cancel()

		if err := e.store.EnsureTables(ctx); err != nil {
			return err
		}
		fmt.Println("table headers ensured")

		if flagSeedDemo {
			added, err := e.roster.SeedDemo(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("seeded %d demo users\n", added)
		}
		return nil
	},
}

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Inspect and move equipment through its lifecycle",
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List items, optionally filtered by status or category",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		ctx, cancel := cmdCtx()
		defer cancel()

		rows, err := e.store.List(ctx, model.TableItems)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tSTATUS\tLOCATION")
		for _, row := range rows {
			item, err := model.ItemFromFields(row.Fields)
			if err != nil {
				continue
			}
			if flagStatus != "" && item.Status != flagStatus {
				continue
			}
			if flagCategory != "" && item.Category != flagCategory {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", item.ItemID, item.Name, item.Category, item.Status, item.Location)
		}
		return w.Flush()
	},
}

var itemsRegisterCmd = &cobra.Command{
	Use:   "register <name>",
	Short: "Register a new item (technician)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		ctx, cancel := cmdCtx()
		defer cancel()

		user, err := e.actor(ctx, true)
		if err != nil {
			return err
		}

		item, err := e.items.RegisterItem(ctx, args[0], flagCategory, flagLocation, flagNotes, user.Name)
		if err != nil {
			return err
		}
		fmt.Printf("registered %s (%s)\n", item.ItemID, item.Name)
		return nil
	},
}

var itemsCheckoutCmd = &cobra.Command{
	Use:   "checkout <item-id>",
	Short: "Check an item out (technician)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return lifecycle(args[0], func(ctx context.Context, e *env, itemID, actor string) (model.Item, error) {
			return e.items.Checkout(ctx, itemID, actor, flagNotes)
		})
	},
}

var itemsReturnCmd = &cobra.Command{
	Use:   "return <item-id>",
	Short: "Return a checked-out item (technician)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return lifecycle(args[0], func(ctx context.Context, e *env, itemID, actor string) (model.Item, error) {
			return e.items.Return(ctx, itemID, actor, flagNotes)
		})
	},
}

// lifecycle runs one technician item transition and prints the result.
func lifecycle(ref string, op func(ctx context.Context, e *env, itemID, actor string) (model.Item, error)) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	ctx, cancel := cmdCtx()
	defer cancel()

	user, err := e.actor(ctx, true)
	if err != nil {
		return err
	}
	itemID, err := parse.ItemRef(ref)
	if err != nil {
		return err
	}

	item, err := op(ctx, e, itemID, user.Name)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s) is now %s\n", item.ItemID, item.Name, item.Status)
	return nil
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "File and triage issue reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reports, optionally filtered by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		ctx, cancel := cmdCtx()
		defer cancel()

		rows, err := e.store.List(ctx, model.TableReports)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tTITLE\tSUBMITTED BY\tASSIGNED TO")
		for _, row := range rows {
			report, err := model.ReportFromFields(row.Fields)
			if err != nil {
				continue
			}
			if flagStatus != "" && report.Status != flagStatus {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				report.ReportID, report.Status, report.Priority, report.Title, report.SubmittedBy, report.AssignedTo)
		}
		return w.Flush()
	},
}

var reportsSubmitCmd = &cobra.Command{
	Use:   "submit <title>",
	Short: "File a new report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		ctx, cancel := cmdCtx()
		defer cancel()

		user, err := e.actor(ctx, false)
		if err != nil {
			return err
		}

		report, err := e.reports.Submit(ctx, user.Name, args[0], flagDesc, flagPriority)
		if err != nil {
			return err
		}
		fmt.Printf("submitted %s (%s)\n", report.ReportID, report.Priority)
		return nil
	},
}

var reportsTriageCmd = &cobra.Command{
	Use:   "triage <report-id>",
	Short: "Move a report through triage (technician)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		ctx, cancel := cmdCtx()
		defer cancel()

		user, err := e.actor(ctx, true)
		if err != nil {
			return err
		}

		report, err := e.reports.Triage(ctx, args[0], flagStatus, user.Name, flagResolution)
		if err != nil {
			return err
		}
		fmt.Printf("%s is now %s (assigned to %s)\n", report.ReportID, report.Status, report.AssignedTo)
		return nil
	},
}

var labelCmd = &cobra.Command{
	Use:   "label <item-id>",
	Short: "Render an item's QR label to a PNG file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		ctx, cancel := cmdCtx()
		defer cancel()

		itemID, err := parse.ItemRef(args[0])
		if err != nil {
			return err
		}
		row, err := e.store.Find(ctx, model.TableItems, "item_id", itemID)
		if err != nil {
			return err
		}
		item, err := model.ItemFromFields(row.Fields)
		if err != nil {
			return err
		}

		png, err := qrtag.Encode(item.Payload())
		if err != nil {
			return err
		}

		out := flagOut
		if out == "" {
			out = item.ItemID + ".png"
		}
		if err := os.WriteFile(out, png, 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", out)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default $CONFIG_PATH or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagAs, "as", "", "roster name to act as")

	bootstrapCmd.Flags().BoolVar(&flagSeedDemo, "seed-demo", false, "seed the demo roster into an empty Users table")

	itemsListCmd.Flags().StringVar(&flagStatus, "status", "", "filter by status")
	itemsListCmd.Flags().StringVar(&flagCategory, "category", "", "filter by category")
	itemsRegisterCmd.Flags().StringVar(&flagCategory, "category", "", "item category")
	itemsRegisterCmd.Flags().StringVar(&flagLocation, "location", "", "storage location")
	itemsRegisterCmd.Flags().StringVar(&flagNotes, "notes", "", "free-form notes")
	itemsCheckoutCmd.Flags().StringVar(&flagNotes, "notes", "", "checkout notes")
	itemsReturnCmd.Flags().StringVar(&flagNotes, "notes", "", "return notes")
	itemsCmd.AddCommand(itemsListCmd, itemsRegisterCmd, itemsCheckoutCmd, itemsReturnCmd)

	reportsListCmd.Flags().StringVar(&flagStatus, "status", "", "filter by status")
	reportsSubmitCmd.Flags().StringVar(&flagDesc, "description", "", "what happened")
	reportsSubmitCmd.Flags().StringVar(&flagPriority, "priority", model.PriorityMedium, "low, medium or high")
	reportsTriageCmd.Flags().StringVar(&flagStatus, "status", "", "open, in_progress or resolved")
	reportsTriageCmd.Flags().StringVar(&flagResolution, "resolution", "", "resolution note")
	reportsCmd.AddCommand(reportsListCmd, reportsSubmitCmd, reportsTriageCmd)

	labelCmd.Flags().StringVarP(&flagOut, "out", "o", "", "output file (default <item-id>.png)")

	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(labelCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
