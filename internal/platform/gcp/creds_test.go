package gcp

import "testing"

func TestClientOptionsFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if opts := ClientOptionsFromEnv(); len(opts) != 0 {
		t.Fatalf("no creds: want=0 opts got=%d", len(opts))
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/secrets/sa.json")
	if opts := ClientOptionsFromEnv(); len(opts) != 1 {
		t.Fatalf("file creds: want=1 opt got=%d", len(opts))
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", `{"type":"service_account"}`)
	if opts := ClientOptionsFromEnv(); len(opts) != 1 {
		t.Fatalf("json creds: want=1 opt got=%d", len(opts))
	}
}
