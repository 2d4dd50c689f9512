//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestRegisterAndLogin(t *testing.T) {
	account := registerCustomer(t, "login-flow")
	if !uuidPattern.MatchString(account.CustomerID) {
		t.Errorf("customer ID %q is not a valid UUID", account.CustomerID)
	}
	if account.AccessToken == "" || account.RefreshToken == "" {
		t.Fatal("expected both tokens in register response")
	}

	resp := doPost(t, "/api/auth/login", loginRequest{Email: account.Email, Password: "s3cret-pass"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}

	login := decodeJSON[authResponse](t, resp)
	if login.CustomerID != account.CustomerID {
		t.Errorf("customer_id: got %q, want %q", login.CustomerID, account.CustomerID)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	account := registerCustomer(t, "wrong-pass")

	resp := doPost(t, "/api/auth/login", loginRequest{Email: account.Email, Password: "not-the-password"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_NoAuth(t *testing.T) {
	req := orderRequest{
		Items:           []orderItemRequest{{ProductID: "p-1", PartnerID: "pt-2", Quantity: 1}},
		ShippingAddress: "42 Test Lane",
		PaymentMethod:   "card",
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_SingleItem(t *testing.T) {
	account := registerCustomer(t, "single-item")

	req := orderRequest{
		Items:           []orderItemRequest{{ProductID: "p-1", PartnerID: "pt-2", Quantity: 1}},
		ShippingAddress: "42 Test Lane",
		PaymentMethod:   "card",
	}
	resp := doRequest(t, http.MethodPost, "/api/orders", account.AccessToken, req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if !uuidPattern.MatchString(order.ID) {
		t.Errorf("order ID %q is not a valid UUID", order.ID)
	}
	// 1420.00 offering price + 150 flat shipping.
	assertAmount(t, "total_amount", order.TotalAmount, 1570)
	// 10% of 1420.
	assertAmount(t, "platform_fee", order.PlatformFee, 142)
	if order.Status != "Processing" {
		t.Errorf("status: got %q, want %q", order.Status, "Processing")
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(order.Items))
	}
	assertAmount(t, "item subtotal", order.Items[0].Subtotal, 1420)
}

func TestPlaceOrder_MultipleItems(t *testing.T) {
	account := registerCustomer(t, "multi-item")

	req := orderRequest{
		Items: []orderItemRequest{
			{ProductID: "p-1", PartnerID: "pt-2", Quantity: 2}, // 2 x 1420.00
			{ProductID: "p-2", PartnerID: "pt-1", Quantity: 1}, // 1 x 3350.00
		},
		ShippingAddress: "42 Test Lane",
		PaymentMethod:   "upi",
	}
	resp := doRequest(t, http.MethodPost, "/api/orders", account.AccessToken, req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	// 2840 + 3350 + 150 shipping.
	assertAmount(t, "total_amount", order.TotalAmount, 6340)
	// 2840 at 10% + 3350 at 15%.
	assertAmount(t, "platform_fee", order.PlatformFee, 786.5)
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	account := registerCustomer(t, "empty-items")

	req := orderRequest{
		Items:           []orderItemRequest{},
		ShippingAddress: "42 Test Lane",
		PaymentMethod:   "card",
	}
	resp := doRequest(t, http.MethodPost, "/api/orders", account.AccessToken, req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_UnknownOffering(t *testing.T) {
	account := registerCustomer(t, "bad-offering")

	req := orderRequest{
		// pt-2 does not list p-2.
		Items:           []orderItemRequest{{ProductID: "p-2", PartnerID: "pt-2", Quantity: 1}},
		ShippingAddress: "42 Test Lane",
		PaymentMethod:   "card",
	}
	resp := doRequest(t, http.MethodPost, "/api/orders", account.AccessToken, req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_Idempotent(t *testing.T) {
	account := registerCustomer(t, "idempotent")

	req := orderRequest{
		Items:           []orderItemRequest{{ProductID: "p-1", PartnerID: "pt-1", Quantity: 1}},
		ShippingAddress: "42 Test Lane",
		PaymentMethod:   "card",
		IdempotencyKey:  "retry-key-1",
	}

	first := doRequest(t, http.MethodPost, "/api/orders", account.AccessToken, req)
	firstOrder := decodeJSON[orderResponse](t, first)
	first.Body.Close()

	second := doRequest(t, http.MethodPost, "/api/orders", account.AccessToken, req)
	defer second.Body.Close()

	secondOrder := decodeJSON[orderResponse](t, second)
	if secondOrder.ID != firstOrder.ID {
		t.Errorf("retried order ID: got %q, want %q", secondOrder.ID, firstOrder.ID)
	}
}

func TestGetOrder_OwnershipHidden(t *testing.T) {
	owner := registerCustomer(t, "owner")
	other := registerCustomer(t, "other")

	req := orderRequest{
		Items:           []orderItemRequest{{ProductID: "p-1", PartnerID: "pt-2", Quantity: 1}},
		ShippingAddress: "42 Test Lane",
		PaymentMethod:   "card",
	}
	created := doRequest(t, http.MethodPost, "/api/orders", owner.AccessToken, req)
	order := decodeJSON[orderResponse](t, created)
	created.Body.Close()

	// The owner sees the order.
	resp := doRequest(t, http.MethodGet, "/api/orders/"+order.ID, owner.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner get: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Another customer gets 403 for an order that exists.
	resp = doRequest(t, http.MethodGet, "/api/orders/"+order.ID, other.AccessToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("other get: expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// A missing order is 404 regardless of who asks.
	resp = doRequest(t, http.MethodGet, "/api/orders/af51c201-0000-0000-0000-000000000000", owner.AccessToken, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing get: expected 404, got %d", resp.StatusCode)
	}
}

func TestListOrders_Paginated(t *testing.T) {
	account := registerCustomer(t, "order-list")

	for range 3 {
		req := orderRequest{
			Items:           []orderItemRequest{{ProductID: "p-1", PartnerID: "pt-1", Quantity: 1}},
			ShippingAddress: "42 Test Lane",
			PaymentMethod:   "card",
		}
		resp := doRequest(t, http.MethodPost, "/api/orders", account.AccessToken, req)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create: expected 201, got %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := doRequest(t, http.MethodGet, "/api/orders?page=1&per_page=2", account.AccessToken, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	page := decodeJSON[pageResponse[orderResponse]](t, resp)
	if page.Total != 3 {
		t.Fatalf("total: got %d, want 3", page.Total)
	}
	if page.TotalPages != 2 {
		t.Errorf("total_pages: got %d, want 2", page.TotalPages)
	}
	if len(page.Data) != 2 {
		t.Errorf("expected 2 orders on page 1, got %d", len(page.Data))
	}
}

func TestOrderStatus_Lifecycle(t *testing.T) {
	account := registerCustomer(t, "status-flow")

	req := orderRequest{
		Items:           []orderItemRequest{{ProductID: "p-2", PartnerID: "pt-1", Quantity: 1}},
		ShippingAddress: "42 Test Lane",
		PaymentMethod:   "card",
	}
	created := doRequest(t, http.MethodPost, "/api/orders", account.AccessToken, req)
	order := decodeJSON[orderResponse](t, created)
	created.Body.Close()

	// Processing -> Shipped carries a tracking number.
	resp := doRequest(t, http.MethodPut, "/api/orders/"+order.ID+"/status", account.AccessToken,
		statusRequest{Status: "Shipped", TrackingNumber: "TRK-4821"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ship: expected 200, got %d", resp.StatusCode)
	}
	shipped := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	if shipped.Status != "Shipped" {
		t.Errorf("status: got %q, want %q", shipped.Status, "Shipped")
	}
	if shipped.TrackingNumber != "TRK-4821" {
		t.Errorf("tracking_number: got %q, want %q", shipped.TrackingNumber, "TRK-4821")
	}

	// Shipped -> Cancelled is not a legal transition.
	resp = doRequest(t, http.MethodPut, "/api/orders/"+order.ID+"/status", account.AccessToken,
		statusRequest{Status: "Cancelled"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("cancel after ship: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Shipped -> Delivered completes the order.
	resp = doRequest(t, http.MethodPut, "/api/orders/"+order.ID+"/status", account.AccessToken,
		statusRequest{Status: "Delivered"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deliver: expected 200, got %d", resp.StatusCode)
	}
	delivered := decodeJSON[orderResponse](t, resp)
	if delivered.Status != "Delivered" {
		t.Errorf("status: got %q, want %q", delivered.Status, "Delivered")
	}
	// The tracking number set on shipment is immutable: the Delivered
	// transition must not clear it.
	if delivered.TrackingNumber != "TRK-4821" {
		t.Errorf("tracking_number after delivery: got %q, want %q", delivered.TrackingNumber, "TRK-4821")
	}

	// Re-read to confirm the stored row kept it too.
	fetched := doRequest(t, http.MethodGet, "/api/orders/"+order.ID, account.AccessToken, nil)
	defer fetched.Body.Close()

	if fetched.StatusCode != http.StatusOK {
		t.Fatalf("get after delivery: expected 200, got %d", fetched.StatusCode)
	}
	stored := decodeJSON[orderResponse](t, fetched)
	if stored.TrackingNumber != "TRK-4821" {
		t.Errorf("stored tracking_number: got %q, want %q", stored.TrackingNumber, "TRK-4821")
	}
}
