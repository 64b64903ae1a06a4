package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"techtrack-backend/internal/metrics"
	"techtrack-backend/internal/model"
	"techtrack-backend/internal/record"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real Sender backed by the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Job is one availability event: an item just returned to circulation and
// its watchers should hear about it.
type Job struct {
	ItemID   string
	ItemName string
}

// pushPayload is the JSON body delivered to the service worker.
type pushPayload struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	ItemID string `json:"item_id"`
}

// WorkerPool manages a pool of workers delivering availability pushes.
// Subscriptions live in the remote store's Subscriptions table; expired ones
// are deactivated in place because the store has no delete.
type WorkerPool struct {
	size    int
	jobs    chan Job
	store   record.Store
	webpush *webpush.Options
	sender  Sender
	logger  *log.Logger
}

// NewWorkerPool creates a worker pool. A nil options disables delivery:
// jobs are accepted and dropped so callers never need to care whether push
// is configured.
func NewWorkerPool(size int, store record.Store, options *webpush.Options, logger *log.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, size),
		store:   store,
		webpush: options,
		sender:  &WebPushSender{},
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Printf("push worker %d started", id)
	for {
		select {
		case job := <-wp.jobs:
			wp.notifyWatchers(ctx, job)
		case <-ctx.Done():
			wp.logger.Printf("push worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an availability event. It never blocks a lifecycle
// request: when all workers are busy and the buffer is full, the push is
// dropped; watchers still see the change on their next dashboard refresh.
func (wp *WorkerPool) Dispatch(itemID, itemName string) {
	select {
	case wp.jobs <- Job{ItemID: itemID, ItemName: itemName}:
	default:
		wp.logger.Printf("push queue full, dropping availability event for %s", itemID)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}

// notifyWatchers reads the subscription table and pushes to every active
// watcher of the item.
func (wp *WorkerPool) notifyWatchers(ctx context.Context, job Job) {
	if wp.webpush == nil || wp.webpush.VAPIDPublicKey == "" {
		return
	}

	rows, err := wp.store.List(ctx, model.TableSubscriptions)
	if err != nil {
		wp.logger.Printf("failed to list subscriptions for %s: %v", job.ItemID, err)
		return
	}

	var watchers []model.Subscription
	for _, row := range rows {
		sub := model.SubscriptionFromFields(row.Fields)
		if sub.IsActive() && sub.Watches(job.ItemID) {
			watchers = append(watchers, sub)
		}
	}
	if len(watchers) == 0 {
		return
	}

	name := job.ItemName
	if name == "" {
		name = job.ItemID
	}
	payload, err := json.Marshal(pushPayload{
		Title:  "Item available",
		Body:   fmt.Sprintf("%s is available again", name),
		ItemID: job.ItemID,
	})
	if err != nil {
		wp.logger.Printf("failed to marshal push payload for %s: %v", job.ItemID, err)
		return
	}

	wp.logger.Printf("sending %d notifications for %s", len(watchers), job.ItemID)
	for _, sub := range watchers {
		wp.send(ctx, sub, payload)
	}
}

// send delivers one push and deactivates the subscription when the push
// service reports it gone.
func (wp *WorkerPool) send(ctx context.Context, sub model.Subscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		metrics.Push("failed")
		wp.logger.Printf("failed to push to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		metrics.Push("expired")
		wp.logger.Printf("subscription %s is gone, deactivating", sub.SubID)
		// Conflict means another worker deactivated it first; that is fine.
		_, err := wp.store.CompareAndUpdate(ctx, model.TableSubscriptions, "sub_id", sub.SubID,
			map[string]string{"active": "true"},
			map[string]string{"active": "false"})
		if err != nil {
			wp.logger.Printf("failed to deactivate subscription %s: %v", sub.SubID, err)
		}
		return
	}
	metrics.Push("sent")
}
