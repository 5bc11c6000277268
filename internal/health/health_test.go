package health

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestCheckBasic(t *testing.T) {
	if got := NewHealthChecker(fakePinger{}, nil).CheckBasic(); got.Status != "healthy" {
		t.Errorf("status = %s", got.Status)
	}
	got := NewHealthChecker(fakePinger{err: errors.New("down")}, nil).CheckBasic()
	if got.Status != "unhealthy" || got.Database.Status != "unhealthy" {
		t.Errorf("status = %+v", got)
	}
}

func TestCheckDetailed(t *testing.T) {
	h := NewHealthChecker(fakePinger{}, func() bool { return false })
	h.sampleFn = func() SystemHealth { return SystemHealth{CPUPercent: 12.5} }

	got := h.CheckDetailed()
	if got.Cache != "unhealthy" || got.System.CPUPercent != 12.5 || got.Status != "healthy" {
		t.Errorf("detailed = %+v", got)
	}

	h.cacheUp = nil
	if got := h.CheckDetailed(); got.Cache != "disabled" {
		t.Errorf("cache = %s", got.Cache)
	}
}
