package monitoring

import (
	"testing"
)

func TestSetLogger(t *testing.T) {
	// Save original logger
	original := Logf
	defer func() { Logf = original }()

	// Test setting a custom logger
	called := false
	customLogger := func(format string, v ...interface{}) {
		called = true
	}

	SetLogger(customLogger)
	Logf("test message")

	if !called {
		t.Error("Custom logger was not called")
	}

	// Test setting nil logger (should create no-op)
	SetLogger(nil)
	// This should not panic
	Logf("test message")

	// Verify the logger is a no-op by checking it doesn't panic
	// and doesn't call anything
	noOpCalled := false
	testLogger := func(format string, v ...interface{}) {
		noOpCalled = true
	}
	SetLogger(testLogger)
	// First verify our test logger works
	Logf("test")
	if !noOpCalled {
		t.Error("Test logger should have been called")
	}

	// Now set to nil and verify it doesn't call our logger
	noOpCalled = false
	SetLogger(nil)
	Logf("test")
	if noOpCalled {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestDebugfRespectsVerbosity(t *testing.T) {
	original := Logf
	originalLevel := Verbosity()
	defer func() {
		Logf = original
		SetVerbosity(originalLevel)
	}()

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, format)
	})

	SetVerbosity(0)
	Debugf(1, "hidden")
	if len(got) != 0 {
		t.Errorf("Debugf(1) should be silent at verbosity 0, got %v", got)
	}

	SetVerbosity(1)
	Debugf(1, "shown")
	Debugf(2, "still hidden")
	if len(got) != 1 || got[0] != "shown" {
		t.Errorf("expected only level-1 message, got %v", got)
	}

	SetVerbosity(2)
	Debugf(2, "now shown")
	if len(got) != 2 {
		t.Errorf("expected level-2 message at verbosity 2, got %v", got)
	}
}

func TestLogf_Default(t *testing.T) {
	// Test that Logf is not nil by default
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}

	// Test that we can call it without panic
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logf panicked: %v", r)
		}
	}()

	Logf("test message: %s", "value")
}
