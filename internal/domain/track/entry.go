package track

// Entry is a raw playlist item as reported by the metadata provider.
// Field names follow yt-dlp's flat-playlist JSON.
type Entry struct {
	ID           string  `json:"id"`
	VideoID      string  `json:"video_id"`
	URL          string  `json:"url"`
	WebpageURL   string  `json:"webpage_url"`
	Title        string  `json:"title"`
	Availability string  `json:"availability"`
	Duration     float64 `json:"duration"` // Seconds, 0 if unknown
}

// SourceURL returns the entry URL, falling back to the webpage URL.
func (e Entry) SourceURL() string {
	if e.URL != "" {
		return e.URL
	}
	return e.WebpageURL
}

// ResolveID returns the explicit identifier, or one parsed from the entry URLs.
func (e Entry) ResolveID() string {
	switch {
	case e.ID != "":
		return e.ID
	case e.VideoID != "":
		return e.VideoID
	}
	if id := ExtractID(e.URL); id != "" {
		return id
	}
	return ExtractID(e.WebpageURL)
}
