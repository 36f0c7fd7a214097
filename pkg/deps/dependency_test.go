package deps

import (
	"testing"

	"github.com/moppi-dev/moppi/pkg/errors"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		name        string
		spec        string
		wantName    string
		wantVersion string
		wantOp      Operator
		wantErr     bool
	}{
		{name: "Equal", spec: "Werkzeug==2.2.2", wantName: "Werkzeug", wantVersion: "2.2.2", wantOp: OpEqual},
		{name: "AtLeast", spec: "MarkupSafe>=2.0", wantName: "MarkupSafe", wantVersion: "2.0", wantOp: OpAtLeast},
		{name: "AtMost", spec: "flask<=2.1", wantName: "flask", wantVersion: "2.1", wantOp: OpAtMost},
		{name: "Spaces", spec: "flask == 2.1", wantName: "flask", wantVersion: "2.1", wantOp: OpEqual},
		{name: "Parens", spec: "flask(==2.1)", wantName: "flask", wantVersion: "2.1", wantOp: OpEqual},
		{name: "NoOperator", spec: "flask", wantErr: true},
		{name: "NoVersion", spec: "flask==", wantErr: true},
		{name: "Empty", spec: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dep, err := ParseSpec(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSpec(%q) error = nil, want error", tt.spec)
				}
				if !errors.Is(err, errors.ErrCodeMalformedRequirement) {
					t.Errorf("error code = %v, want MALFORMED_REQUIREMENT", errors.GetCode(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSpec(%q) error: %v", tt.spec, err)
			}
			if dep.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", dep.Name, tt.wantName)
			}
			if dep.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", dep.Version, tt.wantVersion)
			}
			if dep.Operator != tt.wantOp {
				t.Errorf("Operator = %q, want %q", dep.Operator, tt.wantOp)
			}
		})
	}
}

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantName    string
		wantVersion string
		wantSkip    bool
		wantErr     bool
	}{
		{name: "NameOnly", raw: "MarkupSafe", wantName: "MarkupSafe"},
		{name: "Constraint", raw: "MarkupSafe>=2.0", wantName: "MarkupSafe", wantVersion: "2.0"},
		{name: "ParenConstraint", raw: "MarkupSafe (>=2.0)", wantName: "MarkupSafe", wantVersion: "2.0"},
		{name: "ConstraintList", raw: "flask (>=2.0,<3.0)", wantName: "flask", wantVersion: "2.0"},
		{name: "EnvironmentMarker", raw: `colorama; platform_system == "Windows"`, wantSkip: true},
		{name: "ExtraMarker", raw: `pytest; extra == "test"`, wantSkip: true},
		{name: "Empty", raw: "", wantErr: true},
		{name: "Garbage", raw: "???", wantErr: true},
		{name: "DanglingOperator", raw: "flask>=", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dep, skip, err := ParseRequirement(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRequirement(%q) error = nil, want error", tt.raw)
				}
				if !errors.Is(err, errors.ErrCodeMalformedRequirement) {
					t.Errorf("error code = %v, want MALFORMED_REQUIREMENT", errors.GetCode(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRequirement(%q) error: %v", tt.raw, err)
			}
			if skip != tt.wantSkip {
				t.Fatalf("skip = %v, want %v", skip, tt.wantSkip)
			}
			if skip {
				return
			}
			if dep.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", dep.Name, tt.wantName)
			}
			if dep.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", dep.Version, tt.wantVersion)
			}
		})
	}
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Werkzeug", want: "werkzeug"},
		{in: "typing_extensions", want: "typing-extensions"},
		{in: "Typing-Extensions", want: "typing-extensions"},
		{in: "zope.interface", want: "zope-interface"},
		{in: "a__b--c..d", want: "a-b-c-d"},
		{in: "  Flask  ", want: "flask"},
	}
	for _, tt := range tests {
		if got := Canonical(tt.in); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDependencyCategory(t *testing.T) {
	direct := New("Werkzeug")
	if !direct.Direct() || direct.Optional() || direct.Indirect() {
		t.Error("node without group or requirers should be direct")
	}

	optional := New("black")
	optional.OptionalGroup = "dev"
	if !optional.Optional() || optional.Direct() || optional.Indirect() {
		t.Error("node with group and no requirers should be optional")
	}

	indirect := New("MarkupSafe")
	indirect.AddNeededBy("werkzeug")
	if !indirect.Indirect() || indirect.Direct() || indirect.Optional() {
		t.Error("node with requirers should be indirect")
	}
}

func TestSpecString(t *testing.T) {
	dep := New("Werkzeug")
	dep.Version = "2.2.2"
	if got := dep.Spec(); got != "Werkzeug==2.2.2" {
		t.Errorf("Spec() = %q, want %q", got, "Werkzeug==2.2.2")
	}
}

func TestParents(t *testing.T) {
	dep := New("MarkupSafe")
	dep.AddNeededBy("werkzeug")
	dep.AddNeededBy("flask")
	dep.AddNeededBy("werkzeug") // duplicate

	got := dep.Parents()
	want := []string{"flask", "werkzeug"}
	if len(got) != len(want) {
		t.Fatalf("Parents() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Parents()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
