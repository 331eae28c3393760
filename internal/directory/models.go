package directory

import "errors"

// ErrNotFound is returned by every lookup that has no match.
var ErrNotFound = errors.New("directory: not found")

// Company is an employer that offers internship projects
type Company struct {
	TaxID string `db:"tax_id" yaml:"tax_id" json:"tax_id"`
	Name  string `db:"name" yaml:"name" json:"name"`
}

// University is the academic counterpart of a project
type University struct {
	TaxID string `db:"tax_id" yaml:"tax_id" json:"tax_id"`
	Name  string `db:"name" yaml:"name" json:"name"`
}

// Career is an academic degree students are enrolled in
type Career struct {
	Code string `db:"code" yaml:"code" json:"code"`
	Name string `db:"name" yaml:"name" json:"name"`
}

// StudyPlan is a numbered curriculum version
type StudyPlan struct {
	Code int    `db:"code" yaml:"code" json:"code"`
	Name string `db:"name" yaml:"name" json:"name"`
}

// CatalogPosition is a role from the global position catalog
type CatalogPosition struct {
	Code string `db:"code" yaml:"code" json:"code"`
	Name string `db:"name" yaml:"name" json:"name"`
}
