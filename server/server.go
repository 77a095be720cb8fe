// Package server exposes playback control and editing of a music file over
// HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/vsariola/musicfile"
	"github.com/vsariola/musicfile/edit"
	"github.com/vsariola/musicfile/player"
)

type (
	// Transport is the playback control the server drives, usually a
	// *player.Scheduler.
	Transport interface {
		Start() error
		Stop() error
		SetCurrentTick(tick int) error
		State() player.State
		CurrentTick() int
		Err() error
	}

	Server struct {
		session   *edit.Session
		transport Transport
		logger    *log.Logger
		handler   http.Handler
	}

	StateResponse struct {
		State    string `json:"state"`
		Tick     int    `json:"tick"`
		NumTicks int    `json:"numTicks"`
		Version  int    `json:"version"`
		Error    string `json:"error,omitempty"`
	}

	SeekRequest struct {
		Tick int `json:"tick"`
	}

	// ParamsPatch changes the fields that are set.
	ParamsPatch struct {
		Name         *string `json:"name,omitempty"`
		Key          *string `json:"key,omitempty"`
		UnitNoteType *int    `json:"unitNoteType,omitempty"`
		BPM          *int    `json:"bpm,omitempty"`
		NumBars      *int    `json:"numBars,omitempty"`
		// FitBars grows the number of bars to hold all items.
		FitBars bool `json:"fitBars,omitempty"`
	}

	ItemResponse struct {
		Pos int `json:"pos"`
	}
)

const maxBodySize = 16 << 20

// New returns a server editing the music file of session. allowedOrigins
// lists the origins allowed to make cross-origin requests; empty allows
// none.
func New(session *edit.Session, transport Transport, allowedOrigins []string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{session: session, transport: transport, logger: logger}
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/state", s.handleState).Methods("GET")
	router.HandleFunc("/start", s.handleStart).Methods("POST")
	router.HandleFunc("/stop", s.handleStop).Methods("POST")
	router.HandleFunc("/seek", s.handleSeek).Methods("POST")
	router.HandleFunc("/musicfile", s.handleGetMusicFile).Methods("GET")
	router.HandleFunc("/musicfile", s.handlePutMusicFile).Methods("PUT")
	router.HandleFunc("/musicfile", s.handlePatchMusicFile).Methods("PATCH")
	router.HandleFunc("/tracks/{track:[0-9]+}/items", s.handleInsertItem).Methods("POST")
	router.HandleFunc("/tracks/{track:[0-9]+}/items/{pos:[0-9]+}", s.handleDeleteItem).Methods("DELETE")
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
	})
	s.handler = c.Handler(router)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) state() StateResponse {
	ret := StateResponse{
		State:    s.transport.State().String(),
		Tick:     s.transport.CurrentTick(),
		NumTicks: s.session.MusicFile().NumTicks(),
		Version:  s.session.Version(),
	}
	if err := s.transport.Err(); err != nil {
		ret.Error = err.Error()
	}
	return ret
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	// pending edits must be audible right away
	if err := s.session.Flush(); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.transport.Start(); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.transport.Stop(); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req SeekRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid JSON input: %v", err), http.StatusBadRequest)
		return
	}
	if err := s.transport.SetCurrentTick(req.Tick); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleGetMusicFile(w http.ResponseWriter, r *http.Request) {
	format := musicfile.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		var err error
		if format, err = musicfile.ParseFormat(f); err != nil {
			s.writeError(w, err)
			return
		}
	}
	b, err := musicfile.Marshal(s.session.MusicFile(), format)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if format == musicfile.FormatJSON {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "application/yaml")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func (s *Server) handlePutMusicFile(w http.ResponseWriter, r *http.Request) {
	m, err := musicfile.Read(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.session.Load(m); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handlePatchMusicFile(w http.ResponseWriter, r *http.Request) {
	var patch ParamsPatch
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&patch); err != nil {
		http.Error(w, fmt.Sprintf("invalid JSON input: %v", err), http.StatusBadRequest)
		return
	}
	err := s.session.Apply(func(c *edit.Changes) error {
		p := c.MusicFile().Params()
		if patch.Key != nil {
			key, err := musicfile.ParseKey(*patch.Key)
			if err != nil {
				return err
			}
			p.Key = key
		}
		if patch.UnitNoteType != nil {
			u, err := musicfile.ParseUnitNoteType(*patch.UnitNoteType)
			if err != nil {
				return err
			}
			p.UnitNoteType = u
		}
		if err := c.Update(func(q *musicfile.Params) {
			*q = p
			if patch.Name != nil {
				q.Name = *patch.Name
			}
			if patch.BPM != nil {
				q.BPM = *patch.BPM
			}
			if patch.NumBars != nil {
				q.NumBars = *patch.NumBars
			}
		}); err != nil {
			return err
		}
		if patch.FitBars {
			c.EnsureMinValidNumBars()
		}
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleInsertItem(w http.ResponseWriter, r *http.Request) {
	track, _ := strconv.Atoi(mux.Vars(r)["track"])
	var item musicfile.TrackItem
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&item); err != nil {
		s.writeError(w, err)
		return
	}
	var pos int
	err := s.session.Apply(func(c *edit.Changes) error {
		t, err := c.Track(track)
		if err != nil {
			return err
		}
		pos, err = t.InsertItem(item)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ItemResponse{Pos: pos})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	track, _ := strconv.Atoi(vars["track"])
	pos, _ := strconv.Atoi(vars["pos"])
	err := s.session.Apply(func(c *edit.Changes) error {
		t, err := c.Track(track)
		if err != nil {
			return err
		}
		item, err := t.Item(pos)
		if err != nil {
			return err
		}
		return item.Delete()
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("could not write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusOf(err))
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, musicfile.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, player.ErrNotCompiled), errors.Is(err, player.ErrDisposed):
		return http.StatusConflict
	case errors.Is(err, musicfile.ErrInvalidValue),
		errors.Is(err, musicfile.ErrInvalidFormat),
		errors.Is(err, musicfile.ErrUnsupportedVersion):
		return http.StatusBadRequest
	}
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
