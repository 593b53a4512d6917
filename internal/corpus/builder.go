// Package corpus assembles the labeled training set for one retraining run.
package corpus

import (
	"math/rand"
	"strings"

	"github.com/xxxsen/reframe/internal/model"
	"github.com/xxxsen/reframe/internal/segment"
)

type Options struct {
	NoDistortionLabel string
	// NoDistortionTarget caps the sentinel sentence pool; <= 0 keeps it all.
	NoDistortionTarget int
	Seed               int64
}

type Stats struct {
	BaseRows         int `json:"base_rows"`
	Dropped          int `json:"dropped"`
	Distorted        int `json:"distorted"`
	NoDistortionPool int `json:"no_distortion_pool"`
	NoDistortionKept int `json:"no_distortion_kept"`
	Augmented        int `json:"augmented"`
	Feedback         int `json:"feedback"`
}

type Corpus struct {
	X     []string
	Y     []string
	Stats Stats
}

func (c *Corpus) Len() int {
	return len(c.X)
}

func (c *Corpus) add(text, label string) {
	c.X = append(c.X, text)
	c.Y = append(c.Y, label)
}

// Build merges the base dataset, augmented rows and feedback corrections.
// The output order is: downsampled sentinel sentences, distorted spans,
// augmented rows, feedback. Identical inputs and seed give identical output.
func Build(base []BaseRow, augmented []LabeledRow, feedback []model.Correction, opts Options) *Corpus {
	c := &Corpus{}
	c.Stats.BaseRows = len(base)

	var distorted []LabeledRow
	var pool []string
	for _, row := range base {
		if row.Text == "" || row.Label == "" {
			c.Stats.Dropped++
			continue
		}
		if row.Label != opts.NoDistortionLabel {
			text := row.Span
			if text == "" {
				text = row.Text
			}
			distorted = append(distorted, LabeledRow{Text: text, Label: row.Label})
			continue
		}
		pool = append(pool, segment.Split(row.Text)...)
	}
	c.Stats.NoDistortionPool = len(pool)

	kept := downsample(pool, opts.NoDistortionTarget, opts.Seed)
	c.Stats.NoDistortionKept = len(kept)
	for _, s := range kept {
		c.add(s, opts.NoDistortionLabel)
	}
	for _, row := range distorted {
		c.add(row.Text, row.Label)
	}
	c.Stats.Distorted = len(distorted)

	for _, row := range augmented {
		text, label := strings.TrimSpace(row.Text), strings.TrimSpace(row.Label)
		if text == "" || label == "" {
			continue
		}
		c.add(text, label)
		c.Stats.Augmented++
	}
	for _, fb := range feedback {
		text, label := strings.TrimSpace(fb.Text), strings.TrimSpace(fb.Label)
		if text == "" || label == "" {
			continue
		}
		c.add(text, label)
		c.Stats.Feedback++
	}
	return c
}

func downsample(pool []string, target int, seed int64) []string {
	if target <= 0 || len(pool) <= target {
		return pool
	}
	perm := rand.New(rand.NewSource(seed)).Perm(len(pool))
	out := make([]string, target)
	for i := 0; i < target; i++ {
		out[i] = pool[perm[i]]
	}
	return out
}
