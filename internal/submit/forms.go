package submit

import (
	"bytes"
	"context"
	"image"
	"net/url"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/localtv/localtv/internal/httputil"
	"github.com/localtv/localtv/internal/validate"
)

const (
	msgRequired   = "This field is required."
	msgInvalidURL = "Enter a valid URL."
	msgBrokenLink = "This URL appears to be a broken link."
	msgNotImage   = "Not a valid image."
)

// Remote is the network access the forms need. *Fetcher implements it.
type Remote interface {
	Verify(ctx context.Context, rawURL string) (string, error)
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}

// cleanURL normalizes a URL field. An input without a scheme is treated as
// http. It returns "" for an empty optional value.
func cleanURL(field, value string, required bool, errs httputil.FieldErrors) string {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			errs.Add(field, msgRequired)
		}
		return ""
	}
	if !strings.Contains(value, "://") {
		value = "http://" + value
	}
	if msg := validate.URL(value); msg != "" {
		errs.Add(field, msg)
		return ""
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "ftp") {
		errs.Add(field, msgInvalidURL)
		return ""
	}
	return u.String()
}

// verifiedURL is cleanURL plus an existence check against the remote host.
// It returns the cleaned URL and the remote media type.
func verifiedURL(ctx context.Context, remote Remote, field, value string, errs httputil.FieldErrors) (string, string) {
	u := cleanURL(field, value, true, errs)
	if u == "" {
		return "", ""
	}
	contentType, err := remote.Verify(ctx, u)
	if err != nil {
		errs.Add(field, msgBrokenLink)
		return "", ""
	}
	return u, contentType
}

// Thumbnail is a fetched image that decoded successfully. The reader is
// positioned at the start of the image bytes.
type Thumbnail struct {
	*bytes.Reader
	Format string
}

// ImageURLField accepts a URL pointing at an image. The image is fetched and
// decoded during cleaning.
type ImageURLField struct {
	Required bool
}

// Clean returns nil with no error message for an empty optional value.
func (f ImageURLField) Clean(ctx context.Context, remote Remote, value string) (*Thumbnail, string) {
	errs := httputil.FieldErrors{}
	u := cleanURL("value", value, f.Required, errs)
	if !errs.Empty() {
		return nil, errs["value"][0]
	}
	if u == "" {
		return nil, ""
	}

	data, _, err := remote.Fetch(ctx, u)
	if err != nil {
		return nil, msgNotImage
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, msgNotImage
	}
	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		return nil, msgNotImage
	}
	return &Thumbnail{Reader: bytes.NewReader(data), Format: format}, ""
}

// SubmitVideoForm is the first submission step: a URL that must exist.
type SubmitVideoForm struct {
	URL string `json:"url"`
}

type CleanedSubmitVideo struct {
	URL         string
	ContentType string
}

func (f SubmitVideoForm) Clean(ctx context.Context, remote Remote) (CleanedSubmitVideo, httputil.FieldErrors) {
	errs := httputil.FieldErrors{}
	u, contentType := verifiedURL(ctx, remote, "url", f.URL, errs)
	return CleanedSubmitVideo{URL: u, ContentType: contentType}, errs
}

// SecondStepSubmitVideoForm carries the details shared by the direct and
// embed submission paths.
type SecondStepSubmitVideoForm struct {
	URL         string `json:"url"`
	Thumbnail   string `json:"thumbnail"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
}

type CleanedSecondStep struct {
	URL         string
	Thumbnail   *Thumbnail
	Name        string
	Description string
	Tags        []string
}

func (f SecondStepSubmitVideoForm) clean(ctx context.Context, remote Remote, errs httputil.FieldErrors) CleanedSecondStep {
	var c CleanedSecondStep
	c.URL, _ = verifiedURL(ctx, remote, "url", f.URL, errs)

	thumb, msg := ImageURLField{}.Clean(ctx, remote, f.Thumbnail)
	if msg != "" {
		errs.Add("thumbnail", msg)
	}
	c.Thumbnail = thumb

	c.Name = strings.TrimSpace(f.Name)
	if c.Name == "" {
		errs.Add("name", msgRequired)
	} else if msg := validate.VideoName(c.Name); msg != "" {
		errs.Add("name", msg)
	}

	if strings.TrimSpace(f.Description) == "" {
		errs.Add("description", msgRequired)
	} else if msg := validate.Description(f.Description); msg != "" {
		errs.Add("description", msg)
	} else {
		c.Description = StripTags(f.Description)
	}

	c.Tags = cleanTags(f.Tags, errs)
	return c
}

func (f SecondStepSubmitVideoForm) Clean(ctx context.Context, remote Remote) (CleanedSecondStep, httputil.FieldErrors) {
	errs := httputil.FieldErrors{}
	c := f.clean(ctx, remote, errs)
	return c, errs
}

func cleanTags(input string, errs httputil.FieldErrors) []string {
	tags := ParseTags(input)
	if msg := validate.Tags(tags); msg != "" {
		errs.Add("tags", msg)
	}
	return tags
}

// ScrapedSubmitVideoForm is used when the page describes itself well enough
// that only tags are asked of the submitter.
type ScrapedSubmitVideoForm struct {
	URL  string `json:"url"`
	Tags string `json:"tags"`
}

type CleanedScraped struct {
	URL  string
	Tags []string
}

func (f ScrapedSubmitVideoForm) Clean(ctx context.Context, remote Remote) (CleanedScraped, httputil.FieldErrors) {
	errs := httputil.FieldErrors{}
	u, _ := verifiedURL(ctx, remote, "url", f.URL, errs)
	return CleanedScraped{URL: u, Tags: cleanTags(f.Tags, errs)}, errs
}

// EmbedSubmitVideoForm adds a required embed snippet to the second step.
type EmbedSubmitVideoForm struct {
	SecondStepSubmitVideoForm
	Embed string `json:"embed"`
}

type CleanedEmbed struct {
	CleanedSecondStep
	Embed string
}

func (f EmbedSubmitVideoForm) Clean(ctx context.Context, remote Remote) (CleanedEmbed, httputil.FieldErrors) {
	errs := httputil.FieldErrors{}
	c := CleanedEmbed{CleanedSecondStep: f.SecondStepSubmitVideoForm.clean(ctx, remote, errs)}

	c.Embed = strings.TrimSpace(f.Embed)
	if c.Embed == "" {
		errs.Add("embed", msgRequired)
	} else if msg := validate.EmbedCode(c.Embed); msg != "" {
		errs.Add("embed", msg)
	}
	return c, errs
}

// DirectSubmitVideoForm adds an optional website URL to the second step.
type DirectSubmitVideoForm struct {
	SecondStepSubmitVideoForm
	WebsiteURL string `json:"websiteUrl"`
}

type CleanedDirect struct {
	CleanedSecondStep
	WebsiteURL string
}

func (f DirectSubmitVideoForm) Clean(ctx context.Context, remote Remote) (CleanedDirect, httputil.FieldErrors) {
	errs := httputil.FieldErrors{}
	c := CleanedDirect{CleanedSecondStep: f.SecondStepSubmitVideoForm.clean(ctx, remote, errs)}
	c.WebsiteURL = cleanURL("website_url", f.WebsiteURL, false, errs)
	return c, errs
}
