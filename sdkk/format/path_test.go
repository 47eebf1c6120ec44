package format

import "testing"

func TestNormalizePath(t *testing.T) {

	cases := []struct{ in, want string }{
		{"app.bin", "app.bin"},
		{`docs\readme.txt`, "docs/readme.txt"},
		{"docs//readme.txt", "docs/readme.txt"},
		{"./docs/./readme.txt", "docs/readme.txt"},
		{"/boot/app.bin", "boot/app.bin"},
		{"a/b/../c", "a/c"},
		{"", "."},
	}
	for _, c := range cases {
		if got := NormalizePath(c.in); got != c.want {
			t.Errorf("NormalizePath(%q) = %q, expected %q", c.in, got, c.want)
		}
	}
}

func TestValidPath(t *testing.T) {

	// inputs here are already normalized
	good := []string{"app.bin", "docs/readme.txt", "a/c"}
	bad := []string{"", ".", "..", "../evil", "/etc/passwd"}

	for _, p := range good {
		if !ValidPath(p) {
			t.Errorf("ValidPath(%q) = false, expected true", p)
		}
	}
	for _, p := range bad {
		if ValidPath(p) {
			t.Errorf("ValidPath(%q) = true, expected false", p)
		}
	}
}

func TestModuleTypeNames(t *testing.T) {

	for want, name := range moduleTypeNames {
		got, err := ParseModuleType(name)
		if err != nil || got != want {
			t.Errorf("ParseModuleType(%q) = %v, %v", name, got, err)
		}
	}
	if got, err := ParseModuleType("APP"); err != nil || got != MODULE_TYPE_APPLICATION {
		t.Errorf("ParseModuleType is not case-insensitive: %v, %v", got, err)
	}
	if _, err := ParseModuleType("floppy"); err == nil {
		t.Error("expected an error for an unknown type name")
	}
	if got := ModuleType(99).String(); got != "type(99)" {
		t.Errorf("unknown type renders as %q", got)
	}
}

func TestModuleFlagsString(t *testing.T) {

	if got := MODULE_FLAG_NONE.String(); got != "none" {
		t.Errorf("no flags renders as %q", got)
	}
	if got := (MODULE_FLAG_EXECUTABLE | MODULE_FLAG_READONLY).String(); got != "executable,readonly" {
		t.Errorf("flags render as %q", got)
	}
	if got := (MODULE_FLAG_SIGNED | ModuleFlags(0x100)).String(); got != "signed,0x100" {
		t.Errorf("unknown bits render as %q", got)
	}
}
