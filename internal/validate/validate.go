// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package validate scores extracted records and decides whether they are
// complete enough to act on.
package validate

import (
	"context"
	"log/slog"
	"math"
	"strconv"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/classifier"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/geocode"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

// DefaultThreshold is the minimum confidence for a valid record.
const DefaultThreshold = 0.6

// MaxIssues is the largest issue count a valid record may carry.
const MaxIssues = 2

// Issue texts.
const (
	IssueMissingTitle     = "missing title"
	IssueMissingDate      = "missing start date"
	IssueMissingLocation  = "missing location"
	IssueUnparseableDate  = "unparseable date"
	IssueMissingURL       = "missing link"
	IssueMissingRole      = "missing role"
	IssueMissingGoal      = "missing goal"
	IssueMissingSummary   = "missing summary"
	IssueMissingEventDate = "missing date"
)

// Event scoring weights.
const (
	weightTitle    = 0.3
	weightDate     = 0.3
	weightLocation = 0.2
	weightParsed   = 0.1
	weightVerified = 0.1
)

// Validator scores records. The oracle is optional.
type Validator struct {
	oracle    geocode.Oracle
	threshold float64
}

// New creates a validator. A nil oracle disables location verification; a
// non-positive threshold uses DefaultThreshold.
func New(oracle geocode.Oracle, threshold float64) *Validator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Validator{oracle: oracle, threshold: threshold}
}

// Threshold returns the confidence threshold in use.
func (v *Validator) Threshold() float64 {
	return v.threshold
}

// Validate scores rec. It returns the record to carry forward, which for a
// verified event location is a copy enriched with the oracle's normalized
// address and coordinates, and the validation result.
func (v *Validator) Validate(ctx context.Context, rec models.ExtractedRecord, scores []models.CategoryScore) (models.ExtractedRecord, models.ValidationResult) {
	if rec.Category == models.CategoryEvent {
		return v.validateEvent(ctx, rec)
	}
	return rec, v.validateOther(rec, classifier.ScoreFor(scores, rec.Category))
}

func (v *Validator) validateEvent(ctx context.Context, rec models.ExtractedRecord) (models.ExtractedRecord, models.ValidationResult) {
	var conf float64
	issues := []string{}

	if rec.Has(models.FieldTitle) {
		conf += weightTitle
	} else {
		issues = append(issues, IssueMissingTitle)
	}

	hasDate := rec.Has(models.FieldDate) || rec.Has(models.FieldStartDate)
	if hasDate {
		conf += weightDate
	} else {
		issues = append(issues, IssueMissingDate)
	}

	location := rec.Field(models.FieldLocationAddress)
	if location == "" {
		location = rec.Field(models.FieldLocationName)
	}
	if location != "" {
		conf += weightLocation
	} else {
		issues = append(issues, IssueMissingLocation)
	}

	if hasDate {
		if rec.Has(models.FieldStartDate) {
			conf += weightParsed
		} else {
			conf -= weightParsed
			issues = append(issues, IssueUnparseableDate)
		}
	}

	verified := false
	if location != "" && v.oracle != nil {
		res, err := v.oracle.Verify(ctx, location)
		switch {
		case err != nil:
			slog.Warn("location verification failed",
				"message_id", rec.Source.MessageID,
				"location", location,
				"error", err,
			)
		case res.Verified:
			verified = true
			conf += weightVerified
			rec = rec.With(map[string]string{
				models.FieldNormalizedAddress: res.NormalizedAddress,
				models.FieldLatitude:          strconv.FormatFloat(res.Latitude, 'f', 6, 64),
				models.FieldLongitude:         strconv.FormatFloat(res.Longitude, 'f', 6, 64),
			})
		}
	}

	conf = normalize(conf)
	return rec, models.ValidationResult{
		Valid:      conf >= v.threshold && len(issues) <= MaxIssues,
		Confidence: conf,
		Issues:     issues,
		Verified:   verified,
	}
}

// keyFields lists the fields whose absence is reported for each non-event
// category.
var keyFields = map[models.Category][]struct{ field, issue string }{
	models.CategoryAnnouncement: {
		{models.FieldTitle, IssueMissingTitle},
		{models.FieldSummary, IssueMissingSummary},
	},
	models.CategoryResource: {
		{models.FieldTitle, IssueMissingTitle},
		{models.FieldURL, IssueMissingURL},
	},
	models.CategoryVolunteer: {
		{models.FieldTitle, IssueMissingTitle},
		{models.FieldRole, IssueMissingRole},
		{models.FieldDate, IssueMissingEventDate},
	},
	models.CategoryFundraising: {
		{models.FieldTitle, IssueMissingTitle},
		{models.FieldGoal, IssueMissingGoal},
	},
}

func (v *Validator) validateOther(rec models.ExtractedRecord, score float64) models.ValidationResult {
	issues := []string{}
	for _, k := range keyFields[rec.Category] {
		if !rec.Has(k.field) {
			issues = append(issues, k.issue)
		}
	}
	conf := normalize(score)
	return models.ValidationResult{
		Valid:      conf >= v.threshold && len(issues) <= MaxIssues,
		Confidence: conf,
		Issues:     issues,
	}
}

// normalize clamps c to [0,1] and rounds to two decimals.
func normalize(c float64) float64 {
	c = math.Round(c*100) / 100
	return math.Max(0, math.Min(1, c))
}
