/*
Package streaming sends finished output files to HTTP clients.

The service runs with a server-wide WriteTimeout that suits small JSON
responses but not multi-gigabyte downloads. [Writer] replaces it with a
deadline per chunk: every chunk must reach the client within
Config.WriteTimeout, however long the whole transfer takes, and an optional
MaxDuration caps the stream as a whole.

	func (h *Handlers) GetJobOutput(w http.ResponseWriter, r *http.Request) {
		if err := streaming.ServeFile(w, r, job.OutputPath, streaming.DefaultConfig()); err != nil {
			writeJSONError(w, "Output file not found", http.StatusGone)
		}
	}

[ServeFile] delegates to http.ServeContent, so Range, If-Modified-Since and
HEAD requests work as they do for http.FileServer. Writers that cannot set
deadlines (such as httptest.ResponseRecorder) are written to without them.
*/
package streaming
