package model

// PackageQuery asks an advisory source about one package. An empty Version
// asks for every advisory naming the package.
type PackageQuery struct {
	Ecosystem Ecosystem
	Name      string
	Version   string
}

// Key identifies the query for deduplication.
func (q PackageQuery) Key() string {
	return string(q.Ecosystem) + ":" + q.Ecosystem.NormalizeName(q.Name) + "@" + q.Version
}
