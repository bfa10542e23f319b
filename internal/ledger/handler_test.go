package ledger_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/ledgerly/ledgerly/internal/ledger"
	"github.com/ledgerly/ledgerly/internal/middleware"
)

func newTestApp(svc *ledger.Service) *fiber.App {
	h := ledger.NewHandler(svc)
	app := fiber.New()
	app.Use(middleware.OwnerID())
	app.Post("/accounts", h.Create)
	app.Get("/accounts/summary", h.Summary)
	app.Get("/accounts/:accountId", h.Get)
	app.Put("/accounts/:accountId", h.Update)
	app.Post("/accounts/:accountId/debits", h.Debit)
	app.Post("/transfers", h.Transfer)
	return app
}

func call(t *testing.T, app *fiber.App, ownerID, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-Owner-ID", ownerID)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode, out
}

func TestHandlerCreateAndDebit(t *testing.T) {
	svc, _ := newService(t)
	app := newTestApp(svc)

	status, acc := call(t, app, owner, fiber.MethodPost, "/accounts", `{"name":"Cash","type":"cash","initial_balance":"100"}`)
	if status != fiber.StatusCreated || acc["currency"] != "TRY" {
		t.Fatalf("create: %d %v", status, acc)
	}
	id := acc["id"].(string)

	if status, _ := call(t, app, owner, fiber.MethodPost, "/accounts/"+id+"/debits", `{"amount":"150"}`); status != fiber.StatusUnprocessableEntity {
		t.Fatalf("overdraw status %d, want 422", status)
	}
	status, res := call(t, app, owner, fiber.MethodPost, "/accounts/"+id+"/debits", `{"amount":"40","category":"food"}`)
	if status != fiber.StatusCreated || res["account"].(map[string]any)["balance"] != "60" {
		t.Fatalf("debit: %d %v", status, res)
	}
	if status, _ := call(t, app, "owner-2", fiber.MethodGet, "/accounts/"+id, ""); status != fiber.StatusNotFound {
		t.Fatalf("foreign owner status %d, want 404", status)
	}
}

func TestHandlerTransferHidesForeignDestination(t *testing.T) {
	svc, _ := newService(t)
	app := newTestApp(svc)
	src := open(t, svc, ledger.CreateAccountInput{Name: "Mine", Type: ledger.TypeChecking, InitialBalance: dec(100)})
	dst := open(t, svc, ledger.CreateAccountInput{OwnerID: "owner-2", Name: "Theirs", Type: ledger.TypeChecking, InitialBalance: dec(900)})

	body := `{"source_account_id":"` + src.ID + `","destination_account_id":"` + dst.ID + `","amount":"25"}`
	status, res := call(t, app, owner, fiber.MethodPost, "/transfers", body)
	if status != fiber.StatusCreated {
		t.Fatalf("transfer status %d", status)
	}
	if _, ok := res["incoming"]; ok {
		t.Fatal("incoming leg of a foreign account must not be returned")
	}
	if d := res["destination"].(map[string]any); len(d) != 1 || d["id"] != dst.ID {
		t.Fatalf("destination leaked details: %v", d)
	}

	if status, _ := call(t, app, owner, fiber.MethodPost, "/transfers", `{"source_account_id":"`+src.ID+`","destination_account_id":"`+src.ID+`","amount":"1"}`); status != fiber.StatusBadRequest {
		t.Fatalf("same-account status %d, want 400", status)
	}
}

func TestHandlerUpdateAndSummary(t *testing.T) {
	svc, _ := newService(t)
	app := newTestApp(svc)

	status, acc := call(t, app, owner, fiber.MethodPost, "/accounts", `{"name":"Line","type":"overdraft","overdraft_limit":"1000"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("create: %d", status)
	}
	id := acc["id"].(string)
	if status, _ := call(t, app, owner, fiber.MethodPost, "/accounts/"+id+"/debits", `{"amount":"300"}`); status != fiber.StatusCreated {
		t.Fatalf("draw: %d", status)
	}

	status, acc = call(t, app, owner, fiber.MethodPut, "/accounts/"+id, `{"name":"Credit line","overdraft_limit":"800"}`)
	if status != fiber.StatusOK || acc["name"] != "Credit line" || acc["available_credit"] != "500" {
		t.Fatalf("update: %d %v", status, acc)
	}
	if status, _ := call(t, app, owner, fiber.MethodPut, "/accounts/"+id, `{"overdraft_limit":"100"}`); status != fiber.StatusBadRequest {
		t.Fatalf("limit below drawn: expected 400, got %d", status)
	}
	if status, _ := call(t, app, owner, fiber.MethodPost, "/accounts/"+id+"/debits", `{"amount":"0.005"}`); status != fiber.StatusBadRequest {
		t.Fatalf("sub-cent debit: expected 400, got %d", status)
	}

	status, sum := call(t, app, owner, fiber.MethodGet, "/accounts/summary", "")
	if status != fiber.StatusOK {
		t.Fatalf("summary: %d", status)
	}
	if used := sum["overdraft_used"].(map[string]any); used["TRY"] != "300" {
		t.Fatalf("overdraft used %v", used)
	}
	if balances := sum["balances"].(map[string]any); balances["TRY"] != "0" {
		t.Fatalf("displayed balances %v", balances)
	}
	if overdrawn := sum["overdrawn_accounts"].([]any); len(overdrawn) != 1 {
		t.Fatalf("overdrawn accounts %v", overdrawn)
	}
}
