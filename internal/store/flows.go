package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wayfarer-app/visaflow/internal/flow"
)

// LoadFlow reads the active interview script in position order. Any failure
// here is ErrFlowUnavailable, distinct from an exhausted flow,
// which the resolver reports as interview completion.
func (s *Store) LoadFlow(ctx context.Context) ([]flow.Step, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, position, field_path, prompts, input_type, options, profile, context_tag, prereq
		FROM flow_steps WHERE active ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFlowUnavailable, err)
	}
	defer rows.Close()

	var steps []flow.Step
	for rows.Next() {
		var (
			step    flow.Step
			prompts []byte
			options []byte
			prereq  []byte
			context *string
			profile *string
		)
		if err := rows.Scan(&step.ID, &step.Position, &step.FieldPath, &prompts, &step.InputType, &options, &profile, &context, &prereq); err != nil {
			return nil, fmt.Errorf("%w: scan step: %v", ErrFlowUnavailable, err)
		}
		if err := json.Unmarshal(prompts, &step.Prompts); err != nil {
			return nil, fmt.Errorf("%w: step %s prompts: %v", ErrFlowUnavailable, step.ID, err)
		}
		if len(options) > 0 && string(options) != "null" {
			if err := json.Unmarshal(options, &step.Options); err != nil {
				return nil, fmt.Errorf("%w: step %s options: %v", ErrFlowUnavailable, step.ID, err)
			}
		}
		if len(prereq) > 0 && string(prereq) != "null" {
			step.Prereq = &flow.Condition{}
			if err := json.Unmarshal(prereq, step.Prereq); err != nil {
				return nil, fmt.Errorf("%w: step %s prereq: %v", ErrFlowUnavailable, step.ID, err)
			}
		}
		if profile != nil {
			step.Profile = flow.Profile(*profile)
		}
		if context != nil {
			step.Context = flow.Context(*context)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFlowUnavailable, err)
	}
	return steps, nil
}

// ReplaceFlow atomically swaps in a new interview script: the previous
// version is deactivated and the new steps inserted in one transaction, so
// readers only ever see a complete script.
func (s *Store) ReplaceFlow(ctx context.Context, steps []flow.Step) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE flow_steps SET active = false WHERE active`); err != nil {
		return fmt.Errorf("deactivate previous flow: %w", err)
	}

	for _, step := range steps {
		prompts, err := json.Marshal(step.Prompts)
		if err != nil {
			return fmt.Errorf("step %s prompts: %w", step.ID, err)
		}
		var options, prereq []byte
		if len(step.Options) > 0 {
			if options, err = json.Marshal(step.Options); err != nil {
				return fmt.Errorf("step %s options: %w", step.ID, err)
			}
		}
		if step.Prereq != nil {
			if prereq, err = json.Marshal(step.Prereq); err != nil {
				return fmt.Errorf("step %s prereq: %w", step.ID, err)
			}
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO flow_steps (id, position, field_path, prompts, input_type, options, profile, context_tag, prereq, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true)
			ON CONFLICT (id) DO UPDATE SET
				position = EXCLUDED.position, field_path = EXCLUDED.field_path,
				prompts = EXCLUDED.prompts, input_type = EXCLUDED.input_type,
				options = EXCLUDED.options, profile = EXCLUDED.profile,
				context_tag = EXCLUDED.context_tag, prereq = EXCLUDED.prereq,
				active = true`,
			step.ID, step.Position, step.FieldPath, prompts, string(step.InputType),
			options, string(step.Profile), string(step.Context), prereq,
		)
		if err != nil {
			return fmt.Errorf("insert step %s: %w", step.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
