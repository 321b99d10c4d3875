package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nafeeshossain/allergen-detector/pkg/catalog"
	"github.com/nafeeshossain/allergen-detector/pkg/history"
)

func writeCatalogDir(t *testing.T, root, id, manifest, csv string) {
	t.Helper()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifest), 0o644)
	os.WriteFile(filepath.Join(dir, "data.csv"), []byte(csv), 0o644)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	root := t.TempDir()

	writeCatalogDir(t, root, "allergens-core", `id: allergens-core
kind: allergens
format:
  delimiter: ","
  has_header: true
  normalize: label
display_names:
  milk: Milk / Dairy
  wheat: Wheat / Gluten
`, "allergen,synonym\nmilk,milk\nmilk,casein\negg,egg\npeanut,peanut\nsoy,soy\nsoy,lecithin\nwheat,wheat\nwheat,gluten\n")

	writeCatalogDir(t, root, "harmful-core", `id: harmful-core
kind: harmful
format:
  delimiter: ","
  has_header: true
  normalize: label
`, "ingredient,weight\nsugar,20\ntrans fat,30\n")

	writeCatalogDir(t, root, "products-demo", `id: products-demo
kind: products
format:
  delimiter: ";"
  has_header: true
`, "barcode;name;ingredients\n8901234567890;Chocolate Bar;Milk solids, sugar, cocoa, peanut oil\n")

	reg := catalog.NewRegistry(root)
	if err := reg.Load(); err != nil {
		t.Fatalf("registry load: %v", err)
	}

	st, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ts := httptest.NewServer(NewRouter(&Service{Registry: reg, History: st}))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHandleScan(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/v1/scan", map[string]any{
		"text":      "Contains milk and peanut oil",
		"allergens": []string{"peanut"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Matches []struct {
			Allergen string `json:"allergen"`
			Severity string `json:"severity"`
			Score    int    `json:"score"`
		} `json:"matches"`
		Relevant []string `json:"relevant"`
		Message  string   `json:"message"`
	}
	decodeBody(t, resp, &body)

	found := map[string]bool{}
	for _, m := range body.Matches {
		if m.Severity == "high" {
			found[m.Allergen] = true
		}
	}
	if !found["milk"] || !found["peanut"] {
		t.Errorf("high matches = %+v, want milk and peanut", body.Matches)
	}
	if len(body.Relevant) != 1 || body.Relevant[0] != "peanut" {
		t.Errorf("relevant = %v, want [peanut]", body.Relevant)
	}
	if !strings.HasPrefix(body.Message, "High risk:") {
		t.Errorf("message = %q", body.Message)
	}
}

func TestHandleScanBadJSON(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/scan", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleScanMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/scan")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHandleScanImageEmptyBody(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/scan/image", "image/png", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleBarcode(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/barcode/8901234567890?allergens=milk")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Product struct {
			Name string `json:"name"`
		} `json:"product"`
		Result struct {
			Relevant []string `json:"relevant"`
		} `json:"result"`
	}
	decodeBody(t, resp, &body)
	if body.Product.Name != "Chocolate Bar" {
		t.Errorf("product = %q", body.Product.Name)
	}
	if len(body.Result.Relevant) != 1 || body.Result.Relevant[0] != "milk" {
		t.Errorf("relevant = %v, want [milk]", body.Result.Relevant)
	}
}

func TestHandleBarcodeNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/barcode/0000000000000")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHandleListAllergens(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/allergens")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Allergens []struct {
			Key      string `json:"key"`
			Display  string `json:"display"`
			Synonyms int    `json:"synonyms"`
		} `json:"allergens"`
		Catalogs []struct {
			ID string `json:"id"`
		} `json:"catalogs"`
	}
	decodeBody(t, resp, &body)
	if len(body.Allergens) != 5 {
		t.Fatalf("allergens = %d, want 5", len(body.Allergens))
	}
	if body.Allergens[0].Key != "milk" || body.Allergens[0].Display != "Milk / Dairy" || body.Allergens[0].Synonyms != 2 {
		t.Errorf("first allergen = %+v", body.Allergens[0])
	}
	if len(body.Catalogs) != 3 {
		t.Errorf("catalogs = %d, want 3", len(body.Catalogs))
	}
}

func TestHandleFeedback(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/v1/feedback", map[string]string{
		"user": "alice", "product": "Chocolate Bar", "reaction": "hives", "notes": "within an hour",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	// Missing reaction is rejected.
	resp = postJSON(t, ts.URL+"/v1/feedback", map[string]string{"user": "bob", "product": "Juice"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing reaction", resp.StatusCode)
	}
	resp.Body.Close()

	listResp, err := http.Get(ts.URL + "/v1/feedback?product=Chocolate+Bar")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var body struct {
		Items []struct {
			User     string `json:"user"`
			Reaction string `json:"reaction"`
		} `json:"items"`
		Top []struct {
			Product string `json:"product"`
			Count   int    `json:"count"`
		} `json:"top_products"`
	}
	decodeBody(t, listResp, &body)
	if len(body.Items) != 1 || body.Items[0].Reaction != "hives" {
		t.Errorf("items = %+v", body.Items)
	}
	if len(body.Top) != 1 || body.Top[0].Product != "Chocolate Bar" {
		t.Errorf("top = %+v", body.Top)
	}
}

func TestHandleHistory(t *testing.T) {
	ts := newTestServer(t)

	// Scans with a user are persisted.
	resp := postJSON(t, ts.URL+"/v1/scan", map[string]any{
		"text": "wheat flour and sugar", "user": "alice", "product": "crackers",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("scan status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	histResp, err := http.Get(ts.URL + "/v1/history?user=alice")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var body struct {
		Scans []struct {
			Product  string   `json:"product"`
			Detected []string `json:"detected"`
		} `json:"scans"`
	}
	decodeBody(t, histResp, &body)
	if len(body.Scans) != 1 {
		t.Fatalf("scans = %+v, want 1", body.Scans)
	}
	if body.Scans[0].Product != "crackers" {
		t.Errorf("product = %q", body.Scans[0].Product)
	}
	if len(body.Scans[0].Detected) != 1 || body.Scans[0].Detected[0] != "wheat" {
		t.Errorf("detected = %v, want [wheat]", body.Scans[0].Detected)
	}
}

func TestHandleHistoryRequiresUser(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/history")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var body healthResponse
	decodeBody(t, resp, &body)
	if body.Status != "ok" {
		t.Errorf("status = %q", body.Status)
	}
	if body.Allergens != 5 {
		t.Errorf("allergens = %d, want 5", body.Allergens)
	}
	if body.Catalogs != 3 {
		t.Errorf("catalogs = %d, want 3", body.Catalogs)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/v1/scan", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
