package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestHTTPNotifier_ProfileUpdated(t *testing.T) {
	var got Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("метод запроса: получен %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type: получен %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("декодирование события: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(server.Close)

	n := NewHTTP(server.URL, testLogger())
	n.ProfileUpdated(context.Background(), Event{
		StaffID:       "staff-001",
		EditedBy:      "h.meier",
		ChangedFields: []string{"firstName", "city"},
		OccurredAt:    time.Now(),
	})

	if got.StaffID != "staff-001" || got.EditedBy != "h.meier" {
		t.Errorf("событие доставлено неверно: %+v", got)
	}
	if len(got.ChangedFields) != 2 {
		t.Errorf("changedFields: получено %v", got.ChangedFields)
	}
}

func TestHTTPNotifier_ReceiverError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	// Ошибка получателя не паникует и не возвращается наружу
	n := NewHTTP(server.URL, testLogger())
	n.ProfileUpdated(context.Background(), Event{StaffID: "staff-001"})
}

func TestHTTPNotifier_Unreachable(t *testing.T) {
	n := NewHTTP("http://127.0.0.1:1", testLogger())
	n.ProfileUpdated(context.Background(), Event{StaffID: "staff-001"})
}

func TestNop(t *testing.T) {
	Nop{}.ProfileUpdated(context.Background(), Event{StaffID: "staff-001"})
}
