package extract

import (
	"fmt"
	"strings"
	"testing"

	"minotaur/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const packageJSONFixture = `{
  "name": "demo",
  "dependencies": {"lodash": "^4.17.0", "express": "~4.17.1"},
  "devDependencies": {"jest": "29.0.0"}
}`

const packageLockV3Fixture = `{
  "name": "demo",
  "lockfileVersion": 3,
  "packages": {
    "": {"name": "demo", "dependencies": {"lodash": "^4.17.0", "express": "~4.17.1"}, "devDependencies": {"jest": "29.0.0"}},
    "node_modules/lodash": {"version": "4.17.15"},
    "node_modules/express": {"version": "4.17.1", "dependencies": {"body-parser": "1.19.0", "qs": "6.7.0"}},
    "node_modules/body-parser": {"version": "1.19.0", "dependencies": {"qs": "6.7.0"}},
    "node_modules/qs": {"version": "6.7.0"},
    "node_modules/jest": {"version": "29.0.0"}
  }
}`

const packageLockV1Fixture = `{
  "name": "legacy",
  "lockfileVersion": 1,
  "dependencies": {
    "a": {"version": "1.0.0", "requires": {"b": "^2.0.0"}},
    "b": {"version": "2.1.0", "requires": {"c": "^1.0.0", "d": "^4.0.0"},
      "dependencies": {"c": {"version": "1.5.0"}}},
    "d": {"version": "4.2.0"}
  }
}`

func byName(deps []model.Dependency) map[string]model.Dependency {
	out := make(map[string]model.Dependency, len(deps))
	for _, d := range deps {
		out[d.Name] = d
	}
	return out
}

func TestDetectKind(t *testing.T) {
	tests := map[string]Kind{
		"package.json":             KindPackageJSON,
		"web/package-lock.json":    KindPackageLock,
		"requirements.txt":         KindRequirements,
		"requirements-dev.txt":     KindRequirements,
		"svc/pyproject.toml":       KindPyProject,
		"poetry.lock":              KindPoetryLock,
		"Gemfile.lock":             KindUnknown,
		"src\\app\\package.json":   KindPackageJSON,
		"docs/requirements.md":     KindUnknown,
		"node/npm-shrinkwrap.json": KindPackageLock,
	}
	for p, want := range tests {
		assert.Equal(t, want, DetectKind(p), p)
	}
}

func TestExtractNpmWithLockfile(t *testing.T) {
	res := New(DefaultOptions()).Extract([]Artifact{
		NewArtifact("package.json", []byte(packageJSONFixture)),
		NewArtifact("package-lock.json", []byte(packageLockV3Fixture)),
	})
	require.Empty(t, res.Issues)
	deps := byName(res.Dependencies)
	require.Len(t, deps, 5)

	lodash := deps["lodash"]
	assert.Equal(t, "^4.17.0", lodash.DeclaredRange)
	assert.Equal(t, "4.17.15", lodash.ResolvedVersion, "lockfile upgrades the declared range")
	assert.False(t, lodash.IsTransitive)
	assert.Equal(t, 0, lodash.Depth)
	assert.Empty(t, lodash.IntroducedBy)
	assert.Equal(t, "package.json", lodash.Source)

	bp := deps["body-parser"]
	assert.True(t, bp.IsTransitive)
	assert.Equal(t, 1, bp.Depth)
	assert.Equal(t, []string{"express"}, bp.IntroducedBy)

	qs := deps["qs"]
	assert.Equal(t, 1, qs.Depth)
	assert.Equal(t, []string{"express"}, qs.IntroducedBy)
	assert.ElementsMatch(t, [][]string{{"express"}, {"express", "body-parser"}}, qs.Paths)
}

func TestExtractDeduplicates(t *testing.T) {
	res := New(DefaultOptions()).Extract([]Artifact{
		NewArtifact("package-lock.json", []byte(packageLockV3Fixture)),
	})
	seen := make(map[string]int)
	for _, d := range res.Dependencies {
		seen[d.Key()]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, key)
	}
}

func TestExtractLockV1NestedResolution(t *testing.T) {
	res := New(DefaultOptions()).Extract([]Artifact{
		NewArtifact("package-lock.json", []byte(packageLockV1Fixture)),
	})
	require.Empty(t, res.Issues)
	deps := byName(res.Dependencies)

	assert.Equal(t, 0, deps["a"].Depth, "only a is not required by anything")
	assert.Equal(t, []string{"a"}, deps["b"].IntroducedBy)
	c := deps["c"]
	assert.Equal(t, "1.5.0", c.ResolvedVersion, "nested copy under b")
	assert.Equal(t, []string{"a", "b"}, c.IntroducedBy)
	assert.Equal(t, 2, c.Depth)

	d := deps["d"]
	assert.Equal(t, "4.2.0", d.ResolvedVersion, "resolution walks up to the hoisted copy")
	assert.Equal(t, "^4.0.0", d.DeclaredRange)
}

func TestExtractDepthAndTransitiveLimits(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxDepth = 1
	res := New(opts).Extract([]Artifact{NewArtifact("package-lock.json", []byte(packageLockV1Fixture))})
	assert.Len(t, res.Dependencies, 2)

	opts = DefaultOptions()
	opts.IncludeTransitive = false
	res = New(opts).Extract([]Artifact{
		NewArtifact("package.json", []byte(packageJSONFixture)),
		NewArtifact("package-lock.json", []byte(packageLockV3Fixture)),
	})
	for _, d := range res.Dependencies {
		assert.Equal(t, 0, d.Depth)
	}
	assert.Len(t, res.Dependencies, 3)
}

func TestExtractTruncation(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, "pkg%02d==1.0.%d\n", i, i)
	}
	opts := DefaultOptions()
	opts.MaxDependencies = 10
	res := New(opts).Extract([]Artifact{NewArtifact("requirements.txt", []byte(b.String()))})

	assert.Len(t, res.Dependencies, 10)
	assert.Equal(t, 15, res.Truncated)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, model.IssueTruncated, res.Issues[0].Kind)
}

func TestExtractRequirements(t *testing.T) {
	content := `# pinned
requests==2.19.1
Django>=3.2,<4.0  # web
flask[async] ~= 2.0
numpy==1.21.*
-r other.txt
--index-url https://pypi.example.com/simple
urllib3==1.26.5 --hash=sha256:abc
git+https://github.com/org/tool.git#egg=tool
pkg-with-marker>=1.0; python_version < "3.8"
`
	res := New(DefaultOptions()).Extract([]Artifact{NewArtifact("requirements.txt", []byte(content))})
	require.Empty(t, res.Issues)
	deps := byName(res.Dependencies)

	assert.Equal(t, "2.19.1", deps["requests"].ResolvedVersion)
	assert.Equal(t, model.EcosystemPip, deps["requests"].Ecosystem)
	assert.Equal(t, ">=3.2,<4.0", deps["Django"].DeclaredRange)
	assert.Empty(t, deps["Django"].ResolvedVersion, "ranges stay range-only")
	assert.Equal(t, "~= 2.0", deps["flask"].DeclaredRange)
	assert.Empty(t, deps["numpy"].ResolvedVersion, "wildcard pins are not resolved")
	assert.Equal(t, "1.26.5", deps["urllib3"].ResolvedVersion)
	assert.Contains(t, deps, "tool")
	assert.Equal(t, ">=1.0", deps["pkg-with-marker"].DeclaredRange)
}

func TestExtractPoetry(t *testing.T) {
	pyproject := `
[tool.poetry]
name = "svc"

[tool.poetry.dependencies]
python = "^3.9"
requests = "^2.19"
pydantic = { version = "^1.8", extras = ["email"] }

[tool.poetry.group.dev.dependencies]
pytest = "^7.0"
`
	lock := `
[[package]]
name = "requests"
version = "2.19.1"

[package.dependencies]
certifi = ">=2017.4.17"
urllib3 = [{version = ">=1.21.1,<1.24", markers = "python_version >= '3'"}]

[[package]]
name = "certifi"
version = "2021.5.30"

[[package]]
name = "urllib3"
version = "1.23"

[[package]]
name = "pydantic"
version = "1.8.2"

[[package]]
name = "pytest"
version = "7.1.0"
`
	res := New(DefaultOptions()).Extract([]Artifact{
		NewArtifact("pyproject.toml", []byte(pyproject)),
		NewArtifact("poetry.lock", []byte(lock)),
	})
	require.Empty(t, res.Issues)
	deps := byName(res.Dependencies)
	require.Len(t, deps, 5)
	assert.NotContains(t, deps, "python")

	assert.Equal(t, model.EcosystemPoetry, deps["requests"].Ecosystem)
	assert.Equal(t, "2.19.1", deps["requests"].ResolvedVersion)
	assert.Equal(t, "^1.8", deps["pydantic"].DeclaredRange)
	assert.Equal(t, ">=1.21.1,<1.24", deps["urllib3"].DeclaredRange)
	assert.Equal(t, []string{"requests"}, deps["urllib3"].IntroducedBy)
}

func TestExtractPEP621(t *testing.T) {
	pyproject := `
[project]
name = "app"
dependencies = ["requests>=2.0", "rich==13.3.1"]

[project.optional-dependencies]
test = ["pytest"]
`
	res := New(DefaultOptions()).Extract([]Artifact{NewArtifact("pyproject.toml", []byte(pyproject))})
	require.Empty(t, res.Issues)
	deps := byName(res.Dependencies)
	assert.Equal(t, model.EcosystemPip, deps["requests"].Ecosystem)
	assert.Equal(t, "13.3.1", deps["rich"].ResolvedVersion)
	assert.Contains(t, deps, "pytest")
}

func TestExtractPEP621WithPoetryLock(t *testing.T) {
	pyproject := `
[project]
name = "app"
dependencies = ["requests>=2.0,<3.0"]
`
	lock := `
[[package]]
name = "requests"
version = "2.5.0"

[package.dependencies]
urllib3 = ">=1.21"

[[package]]
name = "urllib3"
version = "1.26.5"
`
	for _, manifestArtifact := range []Artifact{
		NewArtifact("svc/pyproject.toml", []byte(pyproject)),
		NewArtifact("svc/requirements.txt", []byte("requests>=2.0,<3.0\n")),
	} {
		t.Run(manifestArtifact.Path, func(t *testing.T) {
			res := New(DefaultOptions()).Extract([]Artifact{
				manifestArtifact,
				NewArtifact("svc/poetry.lock", []byte(lock)),
			})
			require.Empty(t, res.Issues)
			require.Len(t, res.Dependencies, 2, "each package appears once")

			deps := byName(res.Dependencies)
			requests := deps["requests"]
			assert.Equal(t, model.EcosystemPoetry, requests.Ecosystem)
			assert.Equal(t, ">=2.0,<3.0", requests.DeclaredRange)
			assert.Equal(t, "2.5.0", requests.ResolvedVersion)
			assert.False(t, requests.IsTransitive)

			urllib3 := deps["urllib3"]
			assert.Equal(t, model.EcosystemPoetry, urllib3.Ecosystem)
			assert.Equal(t, 1, urllib3.Depth)
			assert.Equal(t, []string{"requests"}, urllib3.IntroducedBy)
		})
	}
}

func TestExtractIsolatesFailures(t *testing.T) {
	res := New(DefaultOptions()).Extract([]Artifact{
		NewArtifact("broken/package.json", []byte(`{"dependencies": `)),
		NewArtifact("Gemfile", []byte("gem 'rails'")),
		NewArtifact("requirements.txt", []byte("requests==2.19.1\n")),
	})
	require.Len(t, res.Dependencies, 1)
	require.Len(t, res.Issues, 2)
	assert.Equal(t, model.IssueManifestParse, res.Issues[0].Kind)
	assert.Equal(t, "broken/package.json", res.Issues[0].Scope)
	assert.Equal(t, model.IssueUnsupported, res.Issues[1].Kind)
}

func TestExtractDeterministicOrder(t *testing.T) {
	artifacts := []Artifact{
		NewArtifact("package.json", []byte(packageJSONFixture)),
		NewArtifact("package-lock.json", []byte(packageLockV3Fixture)),
	}
	first := New(DefaultOptions()).Extract(artifacts)
	for i := 0; i < 5; i++ {
		again := New(DefaultOptions()).Extract(artifacts)
		assert.Equal(t, first.Dependencies, again.Dependencies)
	}
}
