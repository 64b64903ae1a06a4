package tabular

// RowData is the wire form of one table row: positional cells plus the
// absolute row number (header is row 1, data rows start at 2).
type RowData struct {
	Number int      `json:"number"`
	Cells  []string `json:"cells"`
}

// ListResult models the backend's response to a row listing.
type ListResult struct {
	Header []string  `json:"header"`
	Rows   []RowData `json:"rows"`
}

// AppendRequest is the body of a row append.
type AppendRequest struct {
	Cells []string `json:"cells"`
}

// PatchRequest is the body of a row patch; updates are keyed by column name.
type PatchRequest struct {
	Updates map[string]string `json:"updates"`
}

// HeaderRequest is the body of a header write.
type HeaderRequest struct {
	Header []string `json:"header"`
}

// ErrorBody is the error envelope carried by non-2xx responses.
type ErrorBody struct {
	Error string `json:"error"`
}
