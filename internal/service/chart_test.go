package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/astrialabs/astrochat/domain"
	"github.com/astrialabs/astrochat/internal/adapter/llm"
)

func TestCreateChartComputesPositions(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t, llm.NewMockClient())
	createTestUser(t, repo, "u1")

	chart, err := svc.CreateChart(ctx, "u1", ChartRequest{
		Name:          "my natal chart",
		BirthDate:     "1990-06-15",
		BirthTime:     "14:30",
		BirthLocation: "london",
	})
	if err != nil {
		t.Fatalf("CreateChart failed: %v", err)
	}

	if chart.ChartType != domain.ChartTypeBirth {
		t.Fatalf("expected birth chart default, got %s", chart.ChartType)
	}
	if chart.Latitude == 0 || chart.Longitude == 0 {
		t.Fatalf("expected resolved coordinates, got %f, %f", chart.Latitude, chart.Longitude)
	}
	if !strings.Contains(string(chart.Positions), "Gemini") {
		t.Fatalf("positions should include the sun sign: %s", chart.Positions)
	}

	got, err := svc.GetChart(ctx, chart.ID, "u1")
	if err != nil {
		t.Fatalf("GetChart failed: %v", err)
	}
	if got.Name != "my natal chart" {
		t.Fatalf("unexpected chart: %+v", got)
	}
}

func TestCreateChartFallsBackToProfile(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t, llm.NewMockClient())
	createTestUser(t, repo, "u1")

	date := "1985-11-02"
	tm := "08:15"
	loc := "tokyo"
	if _, err := svc.UpdateUser(ctx, "u1", UserUpdate{
		BirthDate:     &date,
		BirthTime:     &tm,
		BirthLocation: &loc,
	}); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	chart, err := svc.CreateChart(ctx, "u1", ChartRequest{Name: "from profile"})
	if err != nil {
		t.Fatalf("CreateChart failed: %v", err)
	}
	if chart.BirthDate != date || chart.BirthLocation != loc {
		t.Fatalf("profile fallback not applied: %+v", chart)
	}
}

func TestCreateChartRequiresBirthData(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t, llm.NewMockClient())
	createTestUser(t, repo, "u1")

	if _, err := svc.CreateChart(ctx, "u1", ChartRequest{Name: "incomplete"}); err == nil {
		t.Fatal("expected error when neither request nor profile has birth data")
	}
}

func TestChartOwnerIsolation(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t, llm.NewMockClient())
	createTestUser(t, repo, "u1")
	createTestUser(t, repo, "u2")

	chart, err := svc.CreateChart(ctx, "u1", ChartRequest{
		Name:          "mine",
		BirthDate:     "1990-06-15",
		BirthTime:     "14:30",
		BirthLocation: "paris",
	})
	if err != nil {
		t.Fatalf("CreateChart failed: %v", err)
	}

	if _, err := svc.GetChart(ctx, chart.ID, "u2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign chart, got %v", err)
	}
	if err := svc.DeleteChart(ctx, chart.ID, "u2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", err)
	}
}

func TestAttachChartToSession(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t, llm.NewMockClient())
	createTestUser(t, repo, "u1")

	resp, err := svc.ProcessMessage(ctx, "u1", ChatRequest{Content: "hello"})
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	chart, err := svc.CreateChart(ctx, "u1", ChartRequest{
		Name:          "natal",
		BirthDate:     "1990-06-15",
		BirthTime:     "14:30",
		BirthLocation: "berlin",
	})
	if err != nil {
		t.Fatalf("CreateChart failed: %v", err)
	}

	if err := svc.AttachChart(ctx, resp.SessionID, "u1", chart.ID); err != nil {
		t.Fatalf("AttachChart failed: %v", err)
	}

	sess, err := svc.GetSession(ctx, resp.SessionID, "u1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess.ChartID != chart.ID {
		t.Fatalf("chart not linked: %+v", sess)
	}

	// Linking someone else's chart is refused.
	createTestUser(t, repo, "u2")
	other, _ := svc.ProcessMessage(ctx, "u2", ChatRequest{Content: "hi"})
	if err := svc.AttachChart(ctx, other.SessionID, "u2", chart.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign chart link, got %v", err)
	}
}
