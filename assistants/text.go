// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package assistants

import (
	"fmt"
	"regexp"
	"strings"
)

var followUpQuestions = regexp.MustCompile(`(?s)<follow-up-question>.*?</follow-up-question>`)

// Reference is a source cited by an assistant answer.
type Reference struct {
	Name           string `json:"name"`
	URL            string `json:"url"`
	SequenceNumber int    `json:"sequenceNumber"`
}

// OptimizeText removes suggested follow-up questions from an answer and
// replaces <sup>N</sup> citation markers with markdown links to the cited references.
func OptimizeText(text string, references []Reference) string {
	text = followUpQuestions.ReplaceAllString(text, "")
	if len(references) == 0 {
		return strings.TrimSpace(text)
	}

	replacements := make([]string, 0, len(references)*2)
	for _, ref := range references {
		replacements = append(replacements,
			fmt.Sprintf("<sup>%d</sup>", ref.SequenceNumber),
			fmt.Sprintf("[%s](%s)", ref.Name, ref.URL))
	}
	return strings.TrimSpace(strings.NewReplacer(replacements...).Replace(text))
}
