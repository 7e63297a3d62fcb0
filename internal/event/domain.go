package event

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Event is the settlement-relevant view of a training event (product).
type Event struct {
	ProdID    int64     `json:"prod_id"`
	ProdName  string    `json:"prod_name"`
	EventDate time.Time `json:"event_date"`
	Country   string    `json:"country"`
	Venue     string    `json:"venue"`
	Trainer1  string    `json:"trainer_1"`
}

// VenueOnline marks events held online. Fee and grace price keys treat it specially.
const VenueOnline = "Online"

// Program enumerates the product lines recognised in event names.
type Program string

const (
	ProgramSalsation  Program = "Salsation"
	ProgramChoreology Program = "Choreology"
	ProgramKid        Program = "Kid"
	ProgramRootz      Program = "Rootz"
)

// Category enumerates the training formats recognised in event names.
type Category string

const (
	CategoryInstructorTraining Category = "Instructor training"
	CategoryWorkshops          Category = "Workshops"
	CategorySeminar            Category = "Seminar"
	CategoryMethodTraining     Category = "Method Training"
	CategoryOnDemand           Category = "On Demand"
)

// Classification is the program/category pair derived from an event name.
type Classification struct {
	Program  Program  `json:"program"`
	Category Category `json:"category"`
}

// ErrEventNotFound is returned by event sources when the product id is unknown.
var ErrEventNotFound = errors.New("event: not found")

type keyword[T any] struct {
	needle string
	value  T
}

var programKeywords = []keyword[Program]{
	{"choreology", ProgramChoreology},
	{"kid", ProgramKid},
	{"rootz", ProgramRootz},
}

var categoryKeywords = []keyword[Category]{
	{"workshop", CategoryWorkshops},
	{"seminar", CategorySeminar},
	{"method training", CategoryMethodTraining},
	{"on demand", CategoryOnDemand},
}

// Casers are stateful, so each call folds with a fresh one.
func fold(s string) string {
	return cases.Fold().String(s)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(fold(haystack), fold(needle))
}

// Classify derives program and category from the event name. First matching keyword wins.
func Classify(prodName string) Classification {
	name := fold(prodName)
	c := Classification{Program: ProgramSalsation, Category: CategoryInstructorTraining}
	for _, kw := range programKeywords {
		if strings.Contains(name, kw.needle) {
			c.Program = kw.value
			break
		}
	}
	for _, kw := range categoryKeywords {
		if strings.Contains(name, kw.needle) {
			c.Category = kw.value
			break
		}
	}
	return c
}

// Classification returns the program/category pair of the event.
func (e Event) Classification() Classification {
	return Classify(e.ProdName)
}

// IsJapanMarket reports whether the country designates the Japanese market.
func IsJapanMarket(country string) bool {
	return containsFold(country, "japan") || containsFold(country, "jp")
}

// IsLeadTrainer reports whether the trainer is the lead trainer with a dedicated fee strategy.
func IsLeadTrainer(trainer string) bool {
	return containsFold(trainer, "alejandro")
}

// IsOnline reports whether the event is held online.
func (e Event) IsOnline() bool {
	return e.Venue == VenueOnline
}
