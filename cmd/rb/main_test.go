package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/studyreward/rewardbook/internal/config"
	"github.com/studyreward/rewardbook/internal/service"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", service.NewError(service.ErrNotFound, "Task not found"), 1},
		{"wrapped business failure", fmt.Errorf("exchange: %w", service.NewError(service.ErrInsufficientPoints, "积分不足")), 1},
		{"storage failure", errors.New("failed to open storage: locked"), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestServe_RejectsRemoteConfig(t *testing.T) {
	saved := cfg
	defer func() { cfg = saved }()

	cfg = config.DefaultConfig()
	cfg.API.BaseURL = "http://127.0.0.1:1"

	err := serveCmd.RunE(serveCmd, nil)
	if err == nil {
		t.Fatal("serve with api.base_url should fail")
	}
	if exitCode(err) != 2 {
		t.Errorf("exitCode = %d, want 2", exitCode(err))
	}
}
