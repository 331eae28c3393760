package directory

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed is the YAML document used to populate a MemoryRepository.
type Seed struct {
	Companies    []Company         `yaml:"companies"`
	Universities []University      `yaml:"universities"`
	Careers      []Career          `yaml:"careers"`
	StudyPlans   []StudyPlan       `yaml:"study_plans"`
	Positions    []CatalogPosition `yaml:"positions"`
}

// LoadSeed decodes a seed document.
func LoadSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode directory seed: %w", err)
	}
	return &seed, nil
}

// LoadSeedFile opens path and decodes it as a seed document.
func LoadSeedFile(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open directory seed: %w", err)
	}
	defer f.Close()
	return LoadSeed(f)
}

// MemoryRepository is a read-only, map backed Repository.
type MemoryRepository struct {
	companies    map[string]Company
	universities map[string]University
	careers      map[string]Career
	studyPlans   map[int]StudyPlan
	positions    map[string]CatalogPosition
}

// NewMemoryRepository indexes the seed by identifier.
func NewMemoryRepository(seed *Seed) *MemoryRepository {
	r := &MemoryRepository{
		companies:    map[string]Company{},
		universities: map[string]University{},
		careers:      map[string]Career{},
		studyPlans:   map[int]StudyPlan{},
		positions:    map[string]CatalogPosition{},
	}
	if seed == nil {
		return r
	}
	for _, c := range seed.Companies {
		r.companies[c.TaxID] = c
	}
	for _, u := range seed.Universities {
		r.universities[u.TaxID] = u
	}
	for _, c := range seed.Careers {
		r.careers[c.Code] = c
	}
	for _, p := range seed.StudyPlans {
		r.studyPlans[p.Code] = p
	}
	for _, p := range seed.Positions {
		r.positions[p.Code] = p
	}
	return r
}

func (r *MemoryRepository) FindCompanyByTaxID(_ context.Context, taxID string) (*Company, error) {
	c, ok := r.companies[strings.TrimSpace(taxID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *MemoryRepository) FindUniversityByTaxID(_ context.Context, taxID string) (*University, error) {
	u, ok := r.universities[strings.TrimSpace(taxID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) FindCareerByCode(_ context.Context, code string) (*Career, error) {
	c, ok := r.careers[strings.TrimSpace(code)]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *MemoryRepository) FindStudyPlanByCode(_ context.Context, code int) (*StudyPlan, error) {
	p, ok := r.studyPlans[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) FindPositionByCode(_ context.Context, code string) (*CatalogPosition, error) {
	p, ok := r.positions[strings.TrimSpace(code)]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}
