package crossref

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"campus-erp/config"

	"go.uber.org/zap"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Response is the slice of the Crossref works payload we care about.
type Response struct {
	Message struct {
		Title          []string `json:"title"`
		ContainerTitle []string `json:"container-title"`
		Publisher      string   `json:"publisher"`
		Type           string   `json:"type"`
		Issued         struct {
			DateParts [][]int `json:"date-parts"`
		} `json:"issued"`
	} `json:"message"`
}

// Metadata is the prefill result for a draft contribution.
type Metadata struct {
	Title       string `json:"title"`
	JournalName string `json:"journal_name,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	Year        int    `json:"year,omitempty"`
}

// Fetcher wraps the Crossref works endpoint.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher creates a Crossref fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Lookup fetches bibliographic metadata for a DOI.
func (f *Fetcher) Lookup(doi string) (*Metadata, error) {
	u := fmt.Sprintf("%s/%s", f.Config.CrossrefBaseURL, url.PathEscape(doi))
	if f.Config.CrossrefMailto != "" {
		u += "?mailto=" + url.QueryEscape(f.Config.CrossrefMailto)
	}
	log := f.Logger.With(zap.String("doi", doi))
	log.Debug("Calling Crossref API.")

	resp, err := httpClient.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crossref request failed with status: %d", resp.StatusCode)
	}

	var cr Response
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, err
	}

	meta := Metadata{Publisher: cr.Message.Publisher}
	if len(cr.Message.Title) > 0 {
		meta.Title = cr.Message.Title[0]
	}
	if len(cr.Message.ContainerTitle) > 0 {
		meta.JournalName = cr.Message.ContainerTitle[0]
	}
	if len(cr.Message.Issued.DateParts) > 0 && len(cr.Message.Issued.DateParts[0]) > 0 {
		meta.Year = cr.Message.Issued.DateParts[0][0]
	}

	if meta.Title == "" {
		log.Debug("No usable metadata in Crossref response.")
		return nil, nil
	}
	log.Info("DOI metadata found via Crossref.")
	return &meta, nil
}
