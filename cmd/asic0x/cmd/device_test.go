package cmd

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestAttempts(t *testing.T) {
	tests := []struct {
		in, want uint
	}{
		{0, math.MaxUint32},
		{1, 1},
		{3, 3},
	}
	for _, tt := range tests {
		if got := attempts(tt.in); got != tt.want {
			t.Errorf("attempts(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestInfoSimRetries(t *testing.T) {
	for _, retries := range []string{"1", "0"} {
		t.Run("retries="+retries, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			rootCmd.SetArgs([]string{"info", "--sim", "--retries", retries})
			defer rootCmd.SetArgs(nil)
			if err := rootCmd.ExecuteContext(ctx); err != nil {
				t.Fatalf("info --sim --retries %s: %v", retries, err)
			}
		})
	}
}
