/*
File Name:  Multiwriter.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner
*/

package core

import (
	"io"
	"sync"

	"github.com/google/uuid"
)

// multiWriter duplicates writes to all of its subscribed writers. Used for Backend.Stdout so a frontend
// and a file logger can both receive the same diagnostic output.
type multiWriter struct {
	writers map[uuid.UUID]io.Writer
	sync.Mutex
}

func newMultiWriter() *multiWriter {
	return &multiWriter{writers: make(map[uuid.UUID]io.Writer)}
}

// Subscribe adds a new writer to the list of writers.
func (m *multiWriter) Subscribe(writer io.Writer) (id uuid.UUID) {
	m.Lock()
	defer m.Unlock()

	id = uuid.New()
	m.writers[id] = writer
	return id
}

// Unsubscribe removes a writer from the list of writers.
func (m *multiWriter) Unsubscribe(id uuid.UUID) {
	m.Lock()
	defer m.Unlock()

	delete(m.writers, id)
}

// Write sends p to each subscribed writer in turn. It never returns an error; a failing subscriber does
// not block the others.
func (m *multiWriter) Write(p []byte) (n int, err error) {
	m.Lock()
	defer m.Unlock()

	for _, w := range m.writers {
		w.Write(p)
	}
	return len(p), nil
}
