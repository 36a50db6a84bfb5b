package tracker

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/samuelfneumann/rlcode/experience"
)

// Return saves the episodic returns of an experiment.
//
// Note: An episode must finish for its return to be saved. If the last
// episode in an experiment does not finish, that episode's return will
// not be saved.
type Return struct {
	filename string
}

// NewReturn creates and returns a new *Return Tracker
func NewReturn(filename string) *Return {
	return &Return{filename: filename}
}

// Filename returns the file the Tracker saves to
func (r *Return) Filename() string {
	return r.filename
}

// Save saves the return of every episode completed in src to disk
func (r *Return) Save(src experience.Source) error {
	file, err := os.Create(r.filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %w", err)
	}
	defer file.Close()

	returns := src.EpisodeReturns()
	if returns == nil {
		returns = []float64{}
	}
	if err := gob.NewEncoder(file).Encode(returns); err != nil {
		return fmt.Errorf("save: could not encode return data: %w", err)
	}
	return file.Sync()
}
