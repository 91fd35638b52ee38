package moderation

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/localtv/localtv/internal/httputil"
)

// PageSize is the number of items shown per queue page.
const PageSize = 10

type formRow struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

// formSet is one bulk submission: a page of the queue and one row per item
// the moderator touched. Rows with an empty action are left alone.
type formSet struct {
	Page  int       `json:"page"`
	Forms []formRow `json:"forms"`
}

// validate checks every row against the items on the page and the allowed
// actions. Error keys follow the form-<index>-<field> convention.
func (fs formSet) validate(onPage map[string]bool, actions map[string]bool) httputil.FieldErrors {
	errs := httputil.FieldErrors{}
	seen := make(map[string]bool, len(fs.Forms))
	for i, row := range fs.Forms {
		if row.ID == "" {
			errs.Add(fmt.Sprintf("form-%d-id", i), "This field is required.")
		} else if !onPage[row.ID] {
			errs.Add(fmt.Sprintf("form-%d-id", i), "Select a valid choice. That choice is not one of the available choices.")
		} else if seen[row.ID] {
			errs.Add("__all__", "Please correct the duplicate data for id.")
		}
		seen[row.ID] = true

		if row.Action != "" && !actions[row.Action] {
			errs.Add(fmt.Sprintf("form-%d-action", i),
				fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", row.Action))
		}
	}
	return errs
}

// pagination resolves the requested page against the queue size. An empty
// queue still has one (empty) page.
type pagination struct {
	Page     int
	NumPages int
	Total    int
}

func (p pagination) offset() int {
	return (p.Page - 1) * PageSize
}

var errPageNotFound = errors.New("invalid page")

// lastPage is the page number requested by ?page=last.
const lastPage = -1

func paginate(page, total int) (pagination, error) {
	numPages := (total + PageSize - 1) / PageSize
	if numPages == 0 {
		numPages = 1
	}
	if page == lastPage {
		page = numPages
	}
	if page < 1 || page > numPages {
		return pagination{}, errPageNotFound
	}
	return pagination{Page: page, NumPages: numPages, Total: total}, nil
}

func pageFromQuery(r *http.Request) (int, error) {
	switch raw := r.URL.Query().Get("page"); raw {
	case "":
		return 1, nil
	case "last":
		return lastPage, nil
	default:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, errPageNotFound
		}
		return n, nil
	}
}

func pluralize(n int, singular string) string {
	if n == 1 {
		return singular
	}
	return singular + "s"
}

func countMessage(verb string, n int, noun string) string {
	return fmt.Sprintf("%s %d %s.", verb, n, pluralize(n, noun))
}
