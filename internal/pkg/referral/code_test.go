package referral

import (
	"strings"
	"sync"
	"testing"
)

func TestGenerateCodeShape(t *testing.T) {
	code, err := GenerateCode()
	if err != nil {
		t.Fatalf("GenerateCode() error: %v", err)
	}
	if !IsValidCode(code) {
		t.Fatalf("GenerateCode() = %q, want DN-XXXX shape from restricted alphabet", code)
	}
}

func TestGenerateCodeExcludesAmbiguousCharacters(t *testing.T) {
	for _, r := range "0O1I" {
		if strings.ContainsRune(codeAlphabet, r) {
			t.Fatalf("alphabet must not contain ambiguous character %q", r)
		}
	}
}

func TestIsValidCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{code: "DN-ABCD", want: true},
		{code: "DN-2345", want: true},
		{code: "DN-AB", want: false},
		{code: "XX-ABCD", want: false},
		{code: "DN-AB0D", want: false}, // ambiguous zero
		{code: "dn-abcd", want: false},
		{code: "", want: false},
	}

	for _, tt := range tests {
		if got := IsValidCode(tt.code); got != tt.want {
			t.Fatalf("IsValidCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestGenerateCodeConcurrentUniqueness(t *testing.T) {
	const n = 1000

	var mu sync.Mutex
	var wg sync.WaitGroup
	codes := make(map[string]struct{}, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, err := GenerateCode()
			if err != nil {
				t.Errorf("GenerateCode() error: %v", err)
				return
			}
			if !IsValidCode(code) {
				t.Errorf("GenerateCode() = %q, invalid shape", code)
				return
			}
			mu.Lock()
			codes[code] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	// With a ~1M keyspace a few birthday collisions are possible; anything
	// below this bound means the generator is drawing uniformly.
	if len(codes) < n-5 {
		t.Fatalf("got %d unique codes out of %d, generator is not uniform", len(codes), n)
	}
}
