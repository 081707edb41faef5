// Package classifier assigns a category to free-text complaints using a
// naive Bayes model trained on a small phrase corpus at startup.
package classifier

import (
	"strings"
	"unicode"

	"github.com/jbrukh/bayesian"

	"civicvoice/api/internal/store"
)

// Classifier wraps a trained bayesian model. It is safe for concurrent use
// once built; training happens entirely inside New.
type Classifier struct {
	model      *bayesian.Classifier
	classes    []bayesian.Class
	vocabulary map[string]struct{}
}

// New builds and trains the classifier from the built-in corpus.
func New() *Classifier {
	classes := make([]bayesian.Class, 0, len(trainingCorpus))
	for _, cat := range []store.Category{
		store.CategoryHygiene,
		store.CategoryRoads,
		store.CategoryElectricity,
		store.CategoryWater,
		store.CategoryOther,
	} {
		classes = append(classes, bayesian.Class(cat))
	}

	c := &Classifier{
		model:      bayesian.NewClassifier(classes...),
		classes:    classes,
		vocabulary: make(map[string]struct{}),
	}
	for _, class := range classes {
		for _, phrase := range trainingCorpus[store.Category(class)] {
			tokens := tokenize(phrase)
			c.model.Learn(tokens, class)
			for _, t := range tokens {
				c.vocabulary[t] = struct{}{}
			}
		}
	}
	return c
}

// Classify returns the best category for the text. Text with no overlap
// with the training vocabulary, or with no strict winner among the class
// scores, falls back to Other. Classify never fails.
func (c *Classifier) Classify(text string) store.Category {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return store.CategoryOther
	}
	known := 0
	for _, t := range tokens {
		if _, ok := c.vocabulary[t]; ok {
			known++
		}
	}
	if known == 0 {
		return store.CategoryOther
	}
	_, inx, strict := c.model.LogScores(tokens)
	if !strict {
		return store.CategoryOther
	}
	return store.Category(c.classes[inx])
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
