package persistence

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Entry is one journaled editor command.
type Entry struct {
	Seq        uint64    `msgpack:"seq"`
	At         time.Time `msgpack:"at"`
	Op         OpCode    `msgpack:"op"`
	Detail     string    `msgpack:"detail"`
	SnapshotID string    `msgpack:"snapshot,omitempty"`
}

// defaultTailSize is how many recent entries the journal keeps in memory
// for display.
const defaultTailSize = 128

// Journal appends editor commands to a frame file. Appends are buffered;
// Flush pushes them to the OS and Sync makes them durable. The journal is
// safe for use from multiple goroutines.
type Journal struct {
	mu   sync.Mutex
	f    *os.File
	bw   *bufio.Writer
	seq  uint64
	tail []Entry
	log  *slog.Logger
}

// OpenJournal opens or creates the journal at path, scanning existing
// frames so sequence numbers continue where the last run stopped. A
// truncated tail from a crash is tolerated; the file is cut back to the
// last complete frame.
func OpenJournal(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, validLen, err := replayFile(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if fi, err := f.Stat(); err == nil && fi.Size() > validLen {
		logger.Warn("journal has a truncated tail, discarding",
			"path", path, "valid_bytes", validLen, "file_bytes", fi.Size())
		if err := f.Truncate(validLen); err != nil {
			f.Close()
			return nil, fmt.Errorf("truncate journal tail: %w", err)
		}
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, fmt.Errorf("seek journal: %w", err)
	}

	j := &Journal{f: f, bw: bufio.NewWriter(f), log: logger}
	if n := len(entries); n > 0 {
		j.seq = entries[n-1].Seq
		start := 0
		if n > defaultTailSize {
			start = n - defaultTailSize
		}
		j.tail = append(j.tail, entries[start:]...)
	}
	return j, nil
}

// Append journals one command. The entry is buffered; call Flush or Sync
// to push it down.
func (j *Journal) Append(op OpCode, detail, snapshotID string) (Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq++
	e := Entry{Seq: j.seq, At: time.Now(), Op: op, Detail: detail, SnapshotID: snapshotID}
	payload, err := msgpack.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("encode journal entry: %w", err)
	}
	if err := writeFrame(j.bw, op, payload); err != nil {
		return Entry{}, err
	}
	j.tail = append(j.tail, e)
	if len(j.tail) > defaultTailSize {
		j.tail = append(j.tail[:0], j.tail[len(j.tail)-defaultTailSize:]...)
	}
	return e, nil
}

// Flush pushes buffered frames to the OS.
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.bw.Flush()
}

// Sync flushes and makes the journal durable.
func (j *Journal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.bw.Flush(); err != nil {
		return err
	}
	return j.f.Sync()
}

// Reset drops all journaled entries, starting the sequence over. Used
// after a successful save, when the journal has served its purpose.
func (j *Journal) Reset() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.bw.Flush(); err != nil {
		return err
	}
	if err := j.f.Truncate(0); err != nil {
		return fmt.Errorf("truncate journal: %w", err)
	}
	if _, err := j.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek journal: %w", err)
	}
	j.bw.Reset(j.f)
	j.seq = 0
	j.tail = j.tail[:0]
	return nil
}

// Tail returns the most recent entries, oldest first.
func (j *Journal) Tail() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Entry(nil), j.tail...)
}

// Close flushes and closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.bw.Flush(); err != nil {
		j.f.Close()
		return err
	}
	return j.f.Close()
}

// ReplayJournal reads every complete entry from a journal file. A missing
// file yields no entries; a truncated tail stops replay cleanly; a corrupt
// frame is an error.
func ReplayJournal(path string) ([]Entry, error) {
	entries, _, err := replayFile(path)
	return entries, err
}

func replayFile(path string) ([]Entry, int64, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	type countingReader struct {
		r io.Reader
		n int64
	}
	cr := &countingReader{r: bufio.NewReader(f)}
	read := func(p []byte) (int, error) {
		n, err := cr.r.Read(p)
		cr.n += int64(n)
		return n, err
	}

	var entries []Entry
	var validLen int64
	for {
		_, payload, err := readFrame(readerFunc(read))
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return entries, validLen, nil
		}
		if err != nil {
			return nil, 0, fmt.Errorf("replay journal: %w", err)
		}
		var e Entry
		if err := msgpack.Unmarshal(payload, &e); err != nil {
			return nil, 0, fmt.Errorf("replay journal: decode entry: %w", err)
		}
		entries = append(entries, e)
		validLen = cr.n
	}
}

// readerFunc adapts a read function to io.Reader.
type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
