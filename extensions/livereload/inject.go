package livereload

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
)

const script = `<script>(function () {
	var socket = new WebSocket("ws://" + location.host + "/livereload");
	socket.onmessage = function () { location.reload(); };
})();</script>`

func injectable(header http.Header, status int) bool {
	return status == http.StatusOK && strings.HasPrefix(header.Get("Content-Type"), "text/html")
}

// Inject appends the reload script to successful HTML responses. Other
// responses pass through untouched. HEAD responses stay body-free but
// advertise the length the injected GET body would have.
func Inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method == http.MethodHead {
			wrapped := &headWriter{ResponseWriter: writer}
			next.ServeHTTP(wrapped, request)
			wrapped.finish()
			return
		}
		wrapped := &injectWriter{ResponseWriter: writer}
		next.ServeHTTP(wrapped, request)
		wrapped.finish()
	})
}

type injectWriter struct {
	http.ResponseWriter
	status  int
	decided bool
	html    bool
	buffer  bytes.Buffer
}

func (w *injectWriter) WriteHeader(status int) {
	if w.decided {
		return
	}
	w.decided = true
	w.status = status
	w.html = injectable(w.Header(), status)
	if !w.html {
		w.ResponseWriter.WriteHeader(status)
	}
}

func (w *injectWriter) Write(content []byte) (int, error) {
	if !w.decided {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", http.DetectContentType(content))
		}
		w.WriteHeader(http.StatusOK)
	}
	if w.html {
		return w.buffer.Write(content)
	}
	return w.ResponseWriter.Write(content)
}

func (w *injectWriter) finish() {
	if !w.html {
		return
	}
	content := w.buffer.Bytes()
	index := bytes.LastIndex(content, []byte("</body>"))
	var response []byte
	if index < 0 {
		response = append(content, script...)
	} else {
		response = make([]byte, 0, len(content)+len(script))
		response = append(response, content[:index]...)
		response = append(response, script...)
		response = append(response, content[index:]...)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(response)))
	w.ResponseWriter.WriteHeader(w.status)
	w.ResponseWriter.Write(response)
}

// headWriter discards any body and, for injectable responses, raises the
// advertised Content-Length by the script's length so HEAD and GET agree.
type headWriter struct {
	http.ResponseWriter
	decided bool
}

func (w *headWriter) WriteHeader(status int) {
	if w.decided {
		return
	}
	w.decided = true
	if injectable(w.Header(), status) {
		if length, err := strconv.Atoi(w.Header().Get("Content-Length")); err == nil {
			w.Header().Set("Content-Length", strconv.Itoa(length+len(script)))
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *headWriter) Write(content []byte) (int, error) {
	if !w.decided {
		w.WriteHeader(http.StatusOK)
	}
	return len(content), nil
}

func (w *headWriter) finish() {
	if !w.decided {
		w.WriteHeader(http.StatusOK)
	}
}
