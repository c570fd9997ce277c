package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	sdklogging "github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
)

func TestNewTagsService(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "bogus", "IDHashRegistry")
	logger.Debug("hidden")
	logger.Info("visible")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "visible" || line["service"] != "IDHashRegistry" {
		t.Fatalf("unexpected line %v", line)
	}
}

func TestSDKProviderMapsLevels(t *testing.T) {
	var buf bytes.Buffer
	provider := NewSDKProvider(NewWithWriter(&buf, "warn", ""))
	l := provider.GetLogger("fabsdk/core")

	l.Infof("connecting to %s", "peer0")
	l.Warnln("endorsement slow")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected only the warning, got %q: %v", buf.String(), err)
	}
	if line["level"] != "WARN" || line["msg"] != "endorsement slow" || line["module"] != "fabsdk/core" {
		t.Fatalf("unexpected line %v", line)
	}
}

func TestInstallSDKLoggerRoutesSDKOutput(t *testing.T) {
	var buf bytes.Buffer
	InstallSDKLogger(NewWithWriter(&buf, "info", "IDHashRegistry"))

	sdklogging.NewLogger("fabsdk/gateway").Warn("discovery slow")

	out := buf.String()
	if !strings.Contains(out, `"msg":"discovery slow"`) || !strings.Contains(out, `"module":"fabsdk/gateway"`) {
		t.Fatalf("expected SDK warning in slog output, got %q", out)
	}
}
