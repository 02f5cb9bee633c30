package main

import (
	"encoding/json"
	"errors"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/mastercactapus/alevel/autolevel"
	"github.com/mastercactapus/alevel/coord"
	"github.com/mastercactapus/alevel/gcode"
	"github.com/mastercactapus/alevel/machine"
	"go.uber.org/zap"
)

type api struct {
	http.Handler
	m       *machine.Machine
	ch      *channel
	ctrl    *autolevel.Controller
	ev      *events
	dataDir string
	log     *zap.Logger
}

func newAPI(m *machine.Machine, ch *channel, ctrl *autolevel.Controller, ev *events, dir string, log *zap.Logger) *api {
	r := mux.NewRouter()

	a := &api{
		Handler: r,
		m:       m,
		ch:      ch,
		ctrl:    ctrl,
		ev:      ev,
		dataDir: dir,
		log:     log,
	}
	r.Use(a.middleware)

	fs := http.FileServer(http.Dir(dir))
	data := r.PathPrefix("/data/").Subrouter()
	data.Methods("GET").Handler(http.StripPrefix("/data", fs))
	data.Methods("PUT").HandlerFunc(a.putFile)
	data.Methods("DELETE").HandlerFunc(a.deleteFile)

	r.HandleFunc("/api/run", a.run).Methods("POST")

	r.HandleFunc("/api/autolevel", a.autolevel).Methods("POST")
	r.HandleFunc("/api/autolevel", a.cancel).Methods("DELETE")
	r.HandleFunc("/api/autolevel/reapply", a.reapply).Methods("POST")
	r.HandleFunc("/api/autolevel/dump", a.dump).Methods("POST")
	r.HandleFunc("/api/autolevel/points", a.points).Methods("GET")

	r.HandleFunc("/api/program", a.program).Methods("GET")
	r.HandleFunc("/api/program", a.unloadProgram).Methods("DELETE")
	r.HandleFunc("/api/program/leveled", a.leveledProgram).Methods("GET")
	r.HandleFunc("/api/program/run", a.runProgram).Methods("POST")
	r.HandleFunc("/api/program/{name}", a.loadProgram).Methods("PUT")

	r.PathPrefix("/events/").Handler(ev.srv)

	return a
}

func (a *api) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		a.log.Debug("request", zap.String("method", req.Method), zap.String("path", req.URL.Path), zap.String("remote", req.RemoteAddr))
		next.ServeHTTP(w, req)
	})
}

func (a *api) safePath(name string) (bool, string) {
	if filepath.Separator != '/' && strings.ContainsRune(name, filepath.Separator) {
		a.log.Warn("invalid path", zap.String("path", name))
		return false, ""
	}
	dir := a.dataDir
	if dir == "" {
		dir = "."
	}
	fullName := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+name)))
	return true, fullName
}

func (a *api) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("encode response", zap.Error(err))
	}
}

func (a *api) run(w http.ResponseWriter, req *http.Request) {
	data, err := ioutil.ReadAll(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	parts := strings.Split(string(data), "\n")
	p := parts[:0]
	for _, str := range parts {
		str = strings.TrimSpace(str)
		if str == "" {
			continue
		}
		p = append(p, str)
	}
	if len(p) == 0 {
		return
	}
	for _, str := range p {
		// grbl system commands
		if strings.HasPrefix(str, "$") {
			continue
		}
		if _, err := gcode.Parse(str); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	err = a.ch.Run(strings.Join(p, "\n"))
	if err != nil {
		a.log.Error("run", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// queryBounds reads xmin, xmax, ymin and ymax. All four must be given.
func queryBounds(req *http.Request) (*coord.Bounds, error) {
	q := req.URL.Query()
	keys := []string{"xmin", "xmax", "ymin", "ymax"}
	var vals [4]float64
	var n int
	for i, k := range keys {
		s := q.Get(k)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.New("invalid " + k)
		}
		vals[i] = v
		n++
	}
	switch n {
	case 0:
		return nil, nil
	case len(keys):
		return &coord.Bounds{
			Min: coord.Point{X: vals[0], Y: vals[2]},
			Max: coord.Point{X: vals[1], Y: vals[3]},
		}, nil
	}
	return nil, errors.New("bounds need xmin, xmax, ymin and ymax")
}

func (a *api) syncContext(req *http.Request) {
	q := req.URL.Query()
	mposZ, err1 := strconv.ParseFloat(q.Get("mposz"), 64)
	posZ, err2 := strconv.ParseFloat(q.Get("posz"), 64)
	if err1 != nil || err2 != nil {
		st := a.m.CurrentState()
		mposZ, posZ = st.MPos.Z, st.WPos().Z
	}
	a.ctrl.SyncContext(mposZ, posZ)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, autolevel.ErrSessionActive):
		return http.StatusConflict
	case errors.Is(err, autolevel.ErrNoProgram),
		errors.Is(err, autolevel.ErrNoArea),
		errors.Is(err, autolevel.ErrInsufficientProbeData),
		errors.Is(err, machine.ErrGridArea):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (a *api) autolevel(w http.ResponseWriter, req *http.Request) {
	cmd, err := ioutil.ReadAll(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx, err := queryBounds(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	a.syncContext(req)
	err = a.ctrl.Start(string(cmd), ctx)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *api) cancel(w http.ResponseWriter, req *http.Request) {
	if !a.ctrl.Cancel() {
		http.Error(w, "no probing session", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) reapply(w http.ResponseWriter, req *http.Request) {
	err := a.ctrl.Reapply()
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
}

func (a *api) dump(w http.ResponseWriter, req *http.Request) {
	err := a.ctrl.DumpMesh()
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
}

func (a *api) points(w http.ResponseWriter, req *http.Request) {
	points := a.ctrl.Points()
	if points == nil {
		points = []coord.Point{}
	}
	a.writeJSON(w, struct {
		Points []coord.Point   `json:"points"`
		Stats  autolevel.Stats `json:"stats"`
	}{points, autolevel.ComputeStats(points)})
}

type programInfo struct {
	Name    string        `json:"name"`
	Bounds  *coord.Bounds `json:"bounds,omitempty"`
	Leveled string        `json:"leveled,omitempty"`
}

func (a *api) program(w http.ResponseWriter, req *http.Request) {
	var info programInfo
	if p := a.ctrl.Program(); p != nil {
		info.Name = p.Name
		info.Bounds = p.Bounds
	}
	_, info.Leveled = a.ch.programs()
	a.writeJSON(w, info)
}

func (a *api) loadProgram(w http.ResponseWriter, req *http.Request) {
	name := mux.Vars(req)["name"]
	data, err := ioutil.ReadAll(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a.ch.setSource(name, string(data))
	a.ctrl.ProgramLoaded(name, string(data))
}

func (a *api) unloadProgram(w http.ResponseWriter, req *http.Request) {
	a.ch.clear()
	a.ctrl.ProgramUnloaded()
}

func (a *api) leveledProgram(w http.ResponseWriter, req *http.Request) {
	name, text := a.ch.leveledProgram()
	if name == "" {
		http.Error(w, "no leveled program", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, text)
}

func (a *api) runProgram(w http.ResponseWriter, req *http.Request) {
	name, text := a.ch.runnable()
	if name == "" {
		http.Error(w, autolevel.ErrNoProgram.Error(), http.StatusBadRequest)
		return
	}
	err := a.ch.SendGcode(text)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	a.log.Info("running program", zap.String("name", name))
	w.WriteHeader(http.StatusAccepted)
}

func (a *api) putFile(w http.ResponseWriter, req *http.Request) {
	ok, name := a.safePath(strings.TrimPrefix(req.URL.Path, "/data"))
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	os.MkdirAll(filepath.Dir(name), 0755)
	f, err := os.Create(name)
	if err != nil {
		a.log.Error("create file", zap.String("path", name), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	_, err = io.Copy(f, req.Body)
	if err != nil {
		a.log.Error("write file", zap.String("path", name), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (a *api) deleteFile(w http.ResponseWriter, req *http.Request) {
	ok, name := a.safePath(strings.TrimPrefix(req.URL.Path, "/data"))
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	err := os.Remove(name)
	if err != nil {
		a.log.Error("delete file", zap.String("path", name), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
