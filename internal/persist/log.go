package persist

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/leovewc/DS.Chat/internal/store"
	"github.com/leovewc/DS.Chat/pkg/logger"
)

const (
	historyFileName = "chat_history.csv"
	backupDirName   = "backups"
)

// Log is the durable side of the history store: an append-only CSV file of
// committed messages plus timestamp-named full snapshots in a backup
// directory. The record format is a fixed external contract:
//
//	"<room>",<unixMillis>,"<text>"
//
// with embedded quote characters doubled. Snapshot files are immutable once
// written.
type Log struct {
	mu        sync.Mutex
	path      string
	backupDir string
	log       logger.Logger
}

func New(dataDir string, log logger.Logger) *Log {
	return &Log{
		path:      filepath.Join(dataDir, historyFileName),
		backupDir: filepath.Join(dataDir, backupDirName),
		log:       log.WithModule("persist"),
	}
}

// AppendEntry synchronously appends one record to the live history file,
// creating parent directories as needed. A failure is returned to the caller;
// the already-applied in-memory write is not rolled back.
func (l *Log) AppendEntry(room, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatRecord(room, time.Now().UnixMilli(), text)); err != nil {
		return fmt.Errorf("append history record: %w", err)
	}
	return nil
}

// SnapshotBackup dumps every room's full history into a new timestamp-named
// file under the backup directory and returns its path.
func (l *Log) SnapshotBackup(st *store.HistoryStore) (string, error) {
	if err := os.MkdirAll(l.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	path := filepath.Join(l.backupDir, fmt.Sprintf("history_%d.csv", time.Now().UnixMilli()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	now := time.Now().UnixMilli()
	for _, room := range st.ListRooms() {
		for _, entry := range st.RecentMessages(room, math.MaxInt32) {
			if _, err := w.WriteString(formatRecord(room, now, entry.Text)); err != nil {
				return "", fmt.Errorf("write backup record: %w", err)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("flush backup file: %w", err)
	}

	l.log.Infof("snapshot backup written: %s", path)
	return path, nil
}

// LoadOnStartup replays the live history file into st. A missing file means
// empty history and is not an error. A line that does not split into at least
// three comma-separated groups is silently skipped.
func (l *Log) LoadOnStartup(st *store.HistoryStore) error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.log.Infof("no history file at %s, starting empty", l.path)
			return nil
		}
		return fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	loaded := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		room, text, ok := parseRecord(scanner.Text())
		if !ok {
			continue
		}
		st.Append(room, text)
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read history file: %w", err)
	}

	l.log.Infof("loaded %d history records from %s", loaded, l.path)
	return nil
}

func formatRecord(room string, unixMillis int64, text string) string {
	return fmt.Sprintf("%s,%d,%s\n", quote(room), unixMillis, quote(text))
}

func parseRecord(line string) (room, text string, ok bool) {
	parts := strings.SplitN(line, ",", 3)
	if len(parts) < 3 {
		return "", "", false
	}
	return unquote(parts[0]), unquote(parts[2]), true
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func unquote(s string) string {
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.ReplaceAll(s, `""`, `"`)
}
