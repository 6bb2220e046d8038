// Package tui walks a module form interactively in the terminal: one prompt
// per visible field, driven by the same engine the other renderers consume.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/fieldconfig"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/formengine"
)

// Walker prompts field by field over an engine and submits the entry at the
// end. Validation failures re-enter the walk with the prior answers kept as
// defaults.
type Walker struct {
	engine *formengine.Engine
	driver PromptDriver
}

// NewWalker couples an engine with a prompt driver. A nil driver gets the
// terminal-backed one.
func NewWalker(engine *formengine.Engine, driver PromptDriver) *Walker {
	if driver == nil {
		driver = NewSurveyDriver()
	}
	return &Walker{engine: engine, driver: driver}
}

// Run walks the visible fields once, then submits. On validation failure the
// messages are shown and the user may correct and resubmit; any other
// submission failure ends the walk with the error.
func (w *Walker) Run(ctx context.Context) error {
	for {
		if err := w.walkFields(ctx); err != nil {
			return err
		}

		err := w.engine.Submit(ctx)
		if err == nil {
			return w.driver.Info(ctx, fmt.Sprintf("Saved %s entry.", w.engine.Module()))
		}
		if !errors.Is(err, formengine.ErrValidationFailed) {
			return err
		}

		for key, message := range w.engine.Errors() {
			if infoErr := w.driver.Info(ctx, fmt.Sprintf("%s: %s", key, message)); infoErr != nil {
				return infoErr
			}
		}
		retry, confirmErr := w.driver.Confirm(ctx, ConfirmConfig{
			Message: "Fix the highlighted fields?",
			Default: true,
		})
		if confirmErr != nil {
			return confirmErr
		}
		if !retry {
			return err
		}
	}
}

func (w *Walker) walkFields(ctx context.Context) error {
	for _, field := range w.engine.VisibleNow() {
		effective, _, ok := w.engine.EffectiveField(field.Key)
		if !ok {
			continue
		}
		if effective.IsDisabled {
			if value := w.engine.Value(field.Key); value != "" {
				if err := w.driver.Info(ctx, fmt.Sprintf("%s: %s", effective.DisplayLabel(), value)); err != nil {
					return err
				}
			}
			continue
		}

		value, err := w.promptField(ctx, effective)
		if err != nil {
			return err
		}
		w.engine.SetValue(field.Key, value)
		w.engine.RunLookups(ctx)
	}
	return nil
}

func (w *Walker) promptField(ctx context.Context, field fieldconfig.FieldDescriptor) (string, error) {
	current := w.engine.Value(field.Key)

	switch field.InputType {
	case fieldconfig.InputDropdown, fieldconfig.InputRadio:
		options := w.engine.OpenDropdown(ctx, field.Key)
		if len(options) == 0 {
			// Choosable-but-empty falls back to free text.
			return w.driver.Input(ctx, InputConfig{
				Message: field.DisplayLabel(),
				Default: current,
				Help:    field.Placeholder,
			})
		}
		defaultIndex := indexOf(options, current)
		if defaultIndex < 0 {
			defaultIndex = 0
		}
		picked, err := w.driver.Select(ctx, SelectConfig{
			Message:      field.DisplayLabel(),
			Options:      options,
			DefaultIndex: defaultIndex,
			Help:         field.Placeholder,
		})
		if err != nil {
			return "", err
		}
		if picked < 0 || picked >= len(options) {
			return "", nil
		}
		return options[picked], nil

	case fieldconfig.InputTextarea:
		return w.driver.TextArea(ctx, TextAreaConfig{
			Message: field.DisplayLabel(),
			Default: current,
			Help:    field.Placeholder,
		})

	case fieldconfig.InputDate:
		return w.driver.Input(ctx, InputConfig{
			Message: field.DisplayLabel(),
			Default: current,
			Help:    "YYYY-MM-DD",
		})

	default:
		return w.driver.Input(ctx, InputConfig{
			Message: field.DisplayLabel(),
			Default: current,
			Help:    field.Placeholder,
		})
	}
}
