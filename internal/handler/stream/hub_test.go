package stream

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	models "MacroPulse/internal/domain/models"
	"MacroPulse/internal/repository"
	"MacroPulse/internal/usecase"
	xlogger "MacroPulse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

type constSource float64

func (s constSource) Fetch(context.Context, string) (float64, error) { return float64(s), nil }

type message struct {
	Type string          `json:"type"`
	Data models.Snapshot `json:"data"`
}

func readSnapshot(t *testing.T, conn *websocket.Conn) models.Snapshot {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var m message
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	if m.Type != "snapshot" {
		t.Fatalf("type=%q", m.Type)
	}
	return m.Data
}

func TestHub_PushesOnConnectAndAfterCycle(t *testing.T) {
	snap := usecase.NewSnapshotHolder()
	hub := NewHub(xlogger.Nop(), snap, nil)
	defer hub.Close()

	e := echo.New()
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/snapshot"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readSnapshot(t, conn)
	if first.AsOf != 0 || len(first.Values) != 0 {
		t.Fatalf("initial=%+v", first)
	}

	col := usecase.NewCollector(constSource(1385.2), repository.NewMemoryTickStore(), snap, []string{"USDKRW"})
	if _, err := col.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	next := readSnapshot(t, conn)
	if v, ok := next.Values["USDKRW"]; !ok || v != 1385.2 {
		t.Fatalf("pushed=%+v", next)
	}
	if next.AsOf == 0 || next.Status != models.StatusOK {
		t.Fatalf("pushed=%+v", next)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://macro.example"})
	req := httptest.NewRequest("GET", "/ws/snapshot", nil)
	if !check(req) {
		t.Fatalf("no origin should pass")
	}
	req.Header.Set("Origin", "https://evil.example")
	if check(req) {
		t.Fatalf("foreign origin accepted")
	}
	req.Header.Set("Origin", "https://macro.example")
	if !check(req) {
		t.Fatalf("allowed origin rejected")
	}
}
