package serviceconfig

import "testing"

func TestLookupExactMatch(t *testing.T) {
	c := New().Set("echo", MethodConfig{TimeoutMs: 500, Retry: 2})
	mc, ok := c.Lookup("echo")
	if !ok {
		t.Fatalf("expected a match")
	}
	if mc.TimeoutMs != 500 || mc.Retry != 2 {
		t.Fatalf("got %+v", mc)
	}
}

func TestLookupPrefixMatch(t *testing.T) {
	c := New().Set("users/*", MethodConfig{TimeoutMs: 1000})
	mc, ok := c.Lookup("users/get")
	if !ok {
		t.Fatalf("expected a prefix match")
	}
	if mc.TimeoutMs != 1000 {
		t.Fatalf("got %+v", mc)
	}
}

func TestLookupGlobalMatch(t *testing.T) {
	c := New().Set("*", MethodConfig{TimeoutMs: 250})
	mc, ok := c.Lookup("anything")
	if !ok {
		t.Fatalf("expected a global match")
	}
	if mc.TimeoutMs != 250 {
		t.Fatalf("got %+v", mc)
	}
}

func TestLookupPrecedence(t *testing.T) {
	c := New().
		Set("*", MethodConfig{TimeoutMs: 1}).
		Set("users/*", MethodConfig{TimeoutMs: 2}).
		Set("users/get", MethodConfig{TimeoutMs: 3})

	if mc, _ := c.Lookup("users/get"); mc.TimeoutMs != 3 {
		t.Fatalf("exact match should win, got %+v", mc)
	}
	if mc, _ := c.Lookup("users/list"); mc.TimeoutMs != 2 {
		t.Fatalf("prefix match should win over global, got %+v", mc)
	}
	if mc, _ := c.Lookup("other"); mc.TimeoutMs != 1 {
		t.Fatalf("global match should apply, got %+v", mc)
	}
}

func TestLookupNoMatch(t *testing.T) {
	c := New()
	if _, ok := c.Lookup("nope"); ok {
		t.Fatalf("expected no match on an empty config")
	}
}

func TestLookupNilConfig(t *testing.T) {
	var c *Config
	if _, ok := c.Lookup("anything"); ok {
		t.Fatalf("a nil *Config must report no match, not panic")
	}
}

func TestSetTimeoutAndSetRetryPreserveOtherField(t *testing.T) {
	c := New().Set("echo", MethodConfig{TimeoutMs: 500, Retry: 2})
	c.SetTimeout("echo", 999)
	mc, _ := c.Lookup("echo")
	if mc.TimeoutMs != 999 || mc.Retry != 2 {
		t.Fatalf("SetTimeout must not clobber Retry, got %+v", mc)
	}
	c.SetRetry("echo", 7)
	mc, _ = c.Lookup("echo")
	if mc.TimeoutMs != 999 || mc.Retry != 7 {
		t.Fatalf("SetRetry must not clobber TimeoutMs, got %+v", mc)
	}
}
