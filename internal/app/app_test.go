package app

import (
	"context"
	"errors"
	"testing"

	"github.com/aetherchat/aether/internal/config"
	"github.com/aetherchat/aether/internal/testutil"
)

func TestSetupRejectsInvalidConfig(t *testing.T) {
	cfg := &config.Config{} // everything empty fails validation
	_, err := Setup(context.Background(), cfg, testutil.DiscardLogger())
	if !errors.Is(err, config.ErrInvalidModelName) {
		t.Errorf("err = %v, want ErrInvalidModelName", err)
	}
}

func TestCloseOnEmptyApp(t *testing.T) {
	a := &App{}
	if err := a.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
