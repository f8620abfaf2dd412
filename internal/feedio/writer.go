package feedio

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Channel carries the feed-level metadata of one output artifact.
type Channel struct {
	Title       string
	Link        string
	Description string
}

type entry struct {
	Title       string
	Link        string
	GUID        string
	Author      string
	PubDate     time.Time
	Description string
}

func renderFeed(ch Channel, buildTime time.Time, entries []entry) []byte {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	writeElement(&buf, "title", ch.Title, 4)
	writeElement(&buf, "link", ch.Link, 4)
	writeElement(&buf, "description", ch.Description, 4)
	writeElement(&buf, "lastBuildDate", buildTime.UTC().Format(time.RFC1123Z), 4)

	for _, e := range entries {
		writeItem(&buf, e)
	}

	buf.WriteString("  </channel>\n</rss>\n")

	return buf.Bytes()
}

func writeItem(buf *bytes.Buffer, e entry) {
	buf.WriteString("    <item>\n")

	writeElement(buf, "title", e.Title, 6)
	writeElement(buf, "link", e.Link, 6)
	writeElement(buf, "guid", e.GUID, 6)
	writeElement(buf, "dc:creator", e.Author, 6)
	writeElement(buf, "pubDate", e.PubDate.UTC().Format(time.RFC1123Z), 6)
	writeElement(buf, "description", e.Description, 6)

	buf.WriteString("    </item>\n")
}

func writeElement(buf *bytes.Buffer, name, value string, indent int) {
	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<" + name + ">")
	_ = xml.EscapeText(buf, []byte(value))
	buf.WriteString("</" + name + ">\n")
}

// writeAtomic publishes the artifact under its final path only after the
// full content is on disk: a temp file in the same directory plus rename,
// so an interrupted run never leaves a truncated feed visible.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".feed-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp feed: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp feed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp feed: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp feed: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("publish feed: %w", err)
	}

	return nil
}
