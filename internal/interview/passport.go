package interview

import (
	"context"

	"github.com/wayfarer-app/visaflow/internal/ocr"
	"github.com/wayfarer-app/visaflow/internal/payload"
)

// PassportScan is the outcome of applying an extracted passport to the
// application.
type PassportScan struct {
	Applied  []string          `json:"applied"`
	Data     *ocr.PassportData `json:"data"`
	Progress int               `json:"progress"`
}

// ApplyPassport merges extracted passport fields into the application.
// Fields the applicant already answered are never overwritten; the scan is
// a shortcut, not an authority over explicit answers.
func (e *Engine) ApplyPassport(ctx context.Context, userID string, data *ocr.PassportData) (*PassportScan, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	app, err := e.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	applied := data.Apply(app.Payload)
	if len(applied) > 0 {
		if err := e.store.UpdatePayload(ctx, app); err != nil {
			return nil, err
		}
		e.publishUpdated(app, "")
	}
	return &PassportScan{
		Applied:  applied,
		Data:     data,
		Progress: payload.Progress(app.Payload),
	}, nil
}
