package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	u "pdfconvert/internal/utils"
)

func minimalConfig(t *testing.T) u.Config {
	t.Helper()
	cfg := u.DefaultConfig()
	cfg.Poppler.BaseDir = t.TempDir()
	cfg.Poppler.InstallScript = filepath.Join(cfg.Poppler.BaseDir, "missing.sh")
	cfg.Cache.ResultCacheEnabled = false
	return cfg
}

func TestSetupApp_HealthRoute(t *testing.T) {
	app := SetupApp(minimalConfig(t), nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/", nil), -1)
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "OK" {
		t.Fatalf("unexpected health body: %q", body)
	}
}

func TestSetupApp_ProbeHead(t *testing.T) {
	app := SetupApp(minimalConfig(t), nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodHead, "/pdf-to-jpg/", nil), -1)
	if err != nil {
		t.Fatalf("probe request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) != 0 {
		t.Fatalf("expected empty probe body, got %q", body)
	}
}

func TestSetupApp_NotFoundIsPlainText(t *testing.T) {
	app := SetupApp(minimalConfig(t), nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/does-not-exist", nil), -1)
	if err != nil {
		t.Fatalf("404 request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Not Found") {
		t.Fatalf("unexpected 404 body: %q", body)
	}
}

func TestSetupApp_MissingImagesIs400(t *testing.T) {
	app := SetupApp(minimalConfig(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/jpg-to-pdf/", strings.NewReader(""))
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "No images provided") {
		t.Fatalf("unexpected body: %q", body)
	}
}
