package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Mindburn-Labs/rudder/pkg/approval"
)

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = Run(append([]string{"rudder"}, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunHelp(t *testing.T) {
	code, out, _ := runCLI(t, "help")
	if code != 0 {
		t.Fatalf("help exited %d", code)
	}
	if !strings.Contains(out, "USAGE") {
		t.Errorf("help output missing usage section: %q", out)
	}
}

func TestRunVersion(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	if code != 0 {
		t.Fatalf("version exited %d", code)
	}
	if !strings.Contains(out, version) {
		t.Errorf("version output = %q, want it to contain %q", out, version)
	}
}

func TestRunNoArgsPrintsUsage(t *testing.T) {
	code, out, _ := runCLI(t)
	if code != 2 {
		t.Fatalf("bare invocation exited %d, want 2", code)
	}
	if !strings.Contains(out, "USAGE") {
		t.Errorf("expected usage output, got %q", out)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "bogus")
	if code != 2 {
		t.Fatalf("unknown command exited %d, want 2", code)
	}
	if !strings.Contains(errOut, "Unknown command") {
		t.Errorf("stderr = %q, want unknown command report", errOut)
	}
}

func TestProduceRequiresIdeaFlags(t *testing.T) {
	code, _, errOut := runCLI(t, "produce")
	if code != 2 {
		t.Fatalf("produce without flags exited %d, want 2", code)
	}
	if !strings.Contains(errOut, "-title") {
		t.Errorf("stderr = %q, want flag requirements", errOut)
	}
}

func TestHITLRequiresSubcommand(t *testing.T) {
	code, _, errOut := runCLI(t, "hitl")
	if code != 2 {
		t.Fatalf("hitl without subcommand exited %d, want 2", code)
	}
	if !strings.Contains(errOut, "list|approve|reject") {
		t.Errorf("stderr = %q, want subcommand usage", errOut)
	}
}

func TestHITLDecideRequiresTask(t *testing.T) {
	code, _, errOut := runCLI(t, "hitl", "approve")
	if code != 2 {
		t.Fatalf("approve without -task exited %d, want 2", code)
	}
	if !strings.Contains(errOut, "-task") {
		t.Errorf("stderr = %q, want -task requirement", errOut)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("RUDDER_MASTER_SECRET", "doctor-test-secret")

	code, out, errOut := runCLI(t, "token", "-operator", "alice")
	if code != 0 {
		t.Fatalf("token exited %d: %s", code, errOut)
	}
	token := strings.TrimSpace(out)
	if token == "" {
		t.Fatal("token command printed nothing")
	}

	issuer, err := approval.NewTokenIssuer("doctor-test-secret")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	subject, err := issuer.VerifySubject(token)
	if err != nil {
		t.Fatalf("VerifySubject: %v", err)
	}
	if subject != "alice" {
		t.Errorf("token subject = %q, want alice", subject)
	}
}

func TestTokenRequiresOperator(t *testing.T) {
	t.Setenv("RUDDER_MASTER_SECRET", "doctor-test-secret")

	code, _, errOut := runCLI(t, "token")
	if code != 2 {
		t.Fatalf("token without -operator exited %d, want 2", code)
	}
	if !strings.Contains(errOut, "-operator") {
		t.Errorf("stderr = %q, want -operator requirement", errOut)
	}
}

func TestTokenRequiresMasterSecret(t *testing.T) {
	t.Setenv("RUDDER_MASTER_SECRET", "")

	code, _, errOut := runCLI(t, "token", "-operator", "alice")
	if code != 2 {
		t.Fatalf("token without secret exited %d, want 2", code)
	}
	if !strings.Contains(errOut, "RUDDER_MASTER_SECRET") {
		t.Errorf("stderr = %q, want master secret hint", errOut)
	}
}
