package record

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Index is the persisted record store for one account: data/<username>/index.json.
type Index struct {
	Profile     string        `json:"profile"`
	Username    string        `json:"username"`
	Count       int           `json:"count"`
	GeneratedAt string        `json:"generated_at"`
	Records     []VideoRecord `json:"records"`
}

// Counts summarizes capture progress for a unified dataset.
type Counts struct {
	Records     int `json:"records"`
	Audio       int `json:"audio"`
	Captions    int `json:"captions"`
	Transcripts int `json:"transcripts"`
}

// Unified is the reconciled dataset: data/<username>/unified.json.
type Unified struct {
	Profile     string        `json:"profile"`
	Username    string        `json:"username"`
	GeneratedAt string        `json:"generated_at"`
	Counts      Counts        `json:"counts"`
	Records     []VideoRecord `json:"records"`
}

// CountRecords tallies capture progress over a record set.
func CountRecords(records []VideoRecord) Counts {
	c := Counts{Records: len(records)}
	for _, r := range records {
		if r.AudioPath != "" {
			c.Audio++
		}
		if len(r.Captions) > 0 {
			c.Captions++
		}
		if r.Transcript != nil {
			c.Transcripts++
		}
	}
	return c
}

// Store reads and writes the per-account documents under data/<username>/.
// Documents are read wholesale and rewritten wholesale; writes go through a
// temp file and rename so a crash never leaves a torn document behind.
type Store struct {
	dir string
}

func NewStore(dataRoot, username string) *Store {
	return &Store{dir: filepath.Join(dataRoot, username)}
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) AudioDir() string { return filepath.Join(s.dir, "audio") }

func (s *Store) IndexPath() string { return filepath.Join(s.dir, "index.json") }

func (s *Store) JSONLPath() string { return filepath.Join(s.dir, "videos.jsonl") }

func (s *Store) UnifiedPath() string { return filepath.Join(s.dir, "unified.json") }
func (s *Store) ItemPath(id string) string {
	return filepath.Join(s.dir, "items", id+".json")
}
func (s *Store) TranscriptPath(id string) string {
	return filepath.Join(s.dir, "transcripts", id+".json")
}

// LoadIndex reads the persisted record store. A missing file yields an empty
// index; a malformed one is a fatal error, never silently discarded.
func (s *Store) LoadIndex() (Index, error) {
	var idx Index
	data, err := os.ReadFile(s.IndexPath())
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return idx, fmt.Errorf("read index: %w", err)
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return idx, fmt.Errorf("decode index %s: %w", s.IndexPath(), err)
	}
	return idx, nil
}

// SaveIndex writes index.json and the parallel videos.jsonl. Records are
// expected already sorted newest first.
func (s *Store) SaveIndex(profile, username string, records []VideoRecord) error {
	idx := Index{
		Profile:     profile,
		Username:    username,
		Count:       len(records),
		GeneratedAt: ISONow(),
		Records:     records,
	}
	if err := WriteJSON(s.IndexPath(), idx); err != nil {
		return err
	}
	return WriteJSONL(s.JSONLPath(), records)
}

// LoadUnified reads the reconciled dataset.
func (s *Store) LoadUnified() (Unified, error) {
	var uni Unified
	data, err := os.ReadFile(s.UnifiedPath())
	if err != nil {
		return uni, fmt.Errorf("read unified dataset: %w", err)
	}
	if err := json.Unmarshal(data, &uni); err != nil {
		return uni, fmt.Errorf("decode unified dataset %s: %w", s.UnifiedPath(), err)
	}
	return uni, nil
}

// SaveUnified writes unified.json plus one JSON file per item.
func (s *Store) SaveUnified(profile, username string, records []VideoRecord) error {
	uni := Unified{
		Profile:     profile,
		Username:    username,
		GeneratedAt: ISONow(),
		Counts:      CountRecords(records),
		Records:     records,
	}
	if err := WriteJSON(s.UnifiedPath(), uni); err != nil {
		return err
	}
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		if err := WriteJSON(s.ItemPath(rec.ID), rec); err != nil {
			return err
		}
	}
	return nil
}

// LoadTranscript reads a cached transcript, returning ok=false when absent.
func (s *Store) LoadTranscript(id string) (Transcript, bool, error) {
	var t Transcript
	data, err := os.ReadFile(s.TranscriptPath(id))
	if os.IsNotExist(err) {
		return t, false, nil
	}
	if err != nil {
		return t, false, fmt.Errorf("read transcript %s: %w", id, err)
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return t, false, fmt.Errorf("decode transcript %s: %w", id, err)
	}
	return t, true, nil
}

// SaveTranscript caches a transcript so a later run never pays for it again.
func (s *Store) SaveTranscript(id string, t Transcript) error {
	return WriteJSON(s.TranscriptPath(id), t)
}

// WriteJSON marshals v with indentation and writes it atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON for %s: %w", path, err)
	}
	data = append(data, '\n')
	return WriteBytes(path, data)
}

// WriteJSONL writes one compact JSON object per line for streaming consumers.
func WriteJSONL(path string, records []VideoRecord) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.ID, err)
		}
	}
	return WriteBytes(path, buf.Bytes())
}

// ReadJSONL streams records out of a line-delimited file.
func ReadJSONL(path string) ([]VideoRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var out []VideoRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec VideoRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("decode line in %s: %w", path, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return out, nil
}

// WriteBytes writes data to path via a temp file and atomic rename, creating
// parent directories as needed.
func WriteBytes(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".tikdex-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	return nil
}
