// Package ocr extracts structured passport data from uploaded scans. Every
// field is best-effort: extraction failure never blocks the interview, and
// nothing here overwrites an answer the applicant already gave.
package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/wayfarer-app/visaflow/internal/anthropic"
	"github.com/wayfarer-app/visaflow/internal/mrz"
	"github.com/wayfarer-app/visaflow/internal/payload"
)

// PassportData is the best-effort extraction from one document image. Any
// field may be empty.
type PassportData struct {
	Surnames    string   `json:"surnames"`
	GivenNames  string   `json:"given_names"`
	Number      string   `json:"number"`
	BirthDate   string   `json:"birth_date"`
	ExpiryDate  string   `json:"expiry_date"`
	Nationality string   `json:"nationality"`
	Sex         string   `json:"sex"`
	MRZLines    []string `json:"mrz_lines"`
}

// Extractor reads a passport image. Implementations give no correctness
// guarantee; callers treat every field as optional.
type Extractor interface {
	ExtractPassport(ctx context.Context, image []byte, mediaType string) (*PassportData, error)
}

const extractSystemPrompt = `You read passport photo pages. Extract what you can see and respond ONLY with JSON:
{"surnames":"","given_names":"","number":"","birth_date":"YYYY-MM-DD","expiry_date":"YYYY-MM-DD","nationality":"","sex":"M|F|","mrz_lines":["line1","line2"]}

Copy the two machine-readable lines at the bottom character-for-character into mrz_lines, including the < fillers. Leave any field you cannot read as an empty string. Never guess.`

// LLMExtractor is the production Extractor backed by the Anthropic vision API.
type LLMExtractor struct {
	llm    *anthropic.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewLLMExtractor(llm *anthropic.Client, logger *slog.Logger) *LLMExtractor {
	return &LLMExtractor{llm: llm, logger: logger, now: time.Now}
}

func (e *LLMExtractor) ExtractPassport(ctx context.Context, image []byte, mediaType string) (*PassportData, error) {
	msg := anthropic.UserImage(mediaType, image, "Extract the passport data from this image.")
	reply, err := e.llm.Complete(ctx, extractSystemPrompt, []anthropic.Message{msg}, 1024)
	if err != nil {
		return nil, fmt.Errorf("extract passport: %w", err)
	}

	var data PassportData
	if err := json.Unmarshal(anthropic.ExtractJSON(reply), &data); err != nil {
		e.logger.Warn("passport extraction returned malformed JSON", "raw", reply)
		return nil, fmt.Errorf("parse passport extraction: %w", err)
	}

	e.reconcileMRZ(&data)
	return &data, nil
}

// reconcileMRZ re-parses the machine-readable zone and prefers
// check-digit-verified MRZ values over the free-text OCR fields. The MRZ is
// the part of the page designed to survive OCR.
func (e *LLMExtractor) reconcileMRZ(data *PassportData) {
	if len(data.MRZLines) < 2 {
		return
	}
	zone, err := mrz.ParseLines(data.MRZLines, e.now())
	if err != nil {
		return
	}
	if zone.Surnames != "" {
		data.Surnames = zone.Surnames
	}
	if zone.GivenNames != "" {
		data.GivenNames = zone.GivenNames
	}
	if zone.Nationality != "" {
		data.Nationality = zone.Nationality
	}
	if zone.Sex != "" {
		data.Sex = zone.Sex
	}
	if !zone.Number.Suspect && zone.Number.Value != "" {
		data.Number = zone.Number.Value
	}
	if !zone.BirthDate.Suspect && zone.BirthDate.Value != "" {
		data.BirthDate = zone.BirthDate.Value
	}
	if !zone.ExpiryDate.Suspect && zone.ExpiryDate.Value != "" {
		data.ExpiryDate = zone.ExpiryDate.Value
	}
}

// fieldTargets maps extraction fields onto document paths.
func (d *PassportData) fields() map[string]string {
	return map[string]string{
		"personal.surnames":    d.Surnames,
		"personal.given_names": d.GivenNames,
		"personal.dob":         d.BirthDate,
		"passport.number":      d.Number,
		"passport.expiry_date": d.ExpiryDate,
		"passport.nationality": d.Nationality,
		"personal.sex":         d.Sex,
	}
}

// Apply writes the extracted fields into the document, skipping empty values
// and any path the applicant has already answered. Returns the paths written.
func (d *PassportData) Apply(doc payload.Document) []string {
	var applied []string
	for path, value := range d.fields() {
		if value == "" || payload.IsAnswered(doc, path) {
			continue
		}
		payload.Set(doc, path, value)
		applied = append(applied, path)
	}
	return applied
}
