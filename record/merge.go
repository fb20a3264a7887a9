package record

// Merge combines two versions of the same logical record. Fields populated in
// primary win; empty fields adopt secondary's value; captions are unioned by
// key rather than replaced wholesale. The operation is idempotent and a
// self-merge is a no-op.
func Merge(primary, secondary VideoRecord) VideoRecord {
	out := primary

	out.URL = pickString(out.URL, secondary.URL)
	out.Title = pickString(out.Title, secondary.Title)
	out.Description = pickString(out.Description, secondary.Description)
	out.Uploader = pickString(out.Uploader, secondary.Uploader)
	out.UploaderID = pickString(out.UploaderID, secondary.UploaderID)
	out.Source = pickString(out.Source, secondary.Source)
	out.ExtractedAt = pickString(out.ExtractedAt, secondary.ExtractedAt)
	out.AudioPath = pickString(out.AudioPath, secondary.AudioPath)
	out.AudioExt = pickString(out.AudioExt, secondary.AudioExt)
	out.EmbedURL = pickString(out.EmbedURL, secondary.EmbedURL)
	out.EmbedVideo = pickString(out.EmbedVideo, secondary.EmbedVideo)
	out.MusicPlayURL = pickString(out.MusicPlayURL, secondary.MusicPlayURL)
	out.Error = pickString(out.Error, secondary.Error)
	out.CaptionsError = pickString(out.CaptionsError, secondary.CaptionsError)

	out.Timestamp = pickInt64(out.Timestamp, secondary.Timestamp)
	out.ViewCount = pickInt64(out.ViewCount, secondary.ViewCount)
	out.LikeCount = pickInt64(out.LikeCount, secondary.LikeCount)
	out.CommentCount = pickInt64(out.CommentCount, secondary.CommentCount)
	out.RepostCount = pickInt64(out.RepostCount, secondary.RepostCount)

	if out.Duration == nil && secondary.Duration != nil {
		d := *secondary.Duration
		out.Duration = &d
	}
	if out.Transcript == nil && secondary.Transcript != nil {
		t := *secondary.Transcript
		out.Transcript = &t
	}

	out.Captions = mergeCaptions(out.Captions, secondary.Captions)
	return out
}

func pickString(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func pickInt64(a, b *int64) *int64 {
	if a != nil {
		return a
	}
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// mergeCaptions unions two caption lists by key, keeping primary's entries and
// their order, then appending secondary's unseen keys in order.
func mergeCaptions(primary, secondary []Caption) []Caption {
	if len(secondary) == 0 {
		return primary
	}
	if len(primary) == 0 {
		out := make([]Caption, len(secondary))
		copy(out, secondary)
		return out
	}

	seen := make(map[string]bool, len(primary))
	out := make([]Caption, 0, len(primary)+len(secondary))
	for _, c := range primary {
		seen[c.Key()] = true
		out = append(out, c)
	}
	for _, c := range secondary {
		key := c.Key()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
