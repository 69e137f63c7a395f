package params

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

func loadCSV[T any](path, what string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", what, err)
	}
	defer f.Close()

	var rows []T
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parsing %s %s: %w", what, path, err)
	}
	return rows, nil
}

// LoadSpecies reads the species traits CSV.
func LoadSpecies(path string) ([]*Species, error) {
	return loadCSV[*Species](path, "species table")
}

// LoadSpeciesEcoregion reads the species x ecoregion CSV.
func LoadSpeciesEcoregion(path string) ([]SpeciesEcoregionRecord, error) {
	return loadCSV[SpeciesEcoregionRecord](path, "species-ecoregion table")
}

// LoadCommunities reads the initial communities CSV.
func LoadCommunities(path string) ([]CommunityRecord, error) {
	return loadCSV[CommunityRecord](path, "initial communities table")
}
