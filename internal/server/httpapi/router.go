package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/weldkeeper/internal/server/objectstore"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes returns the chi router serving the whole API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(instrument(h.logger))

	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.Handler())
	if h.objects != nil {
		r.Get(objectstore.ObjectsPath, h.getObject)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(producerAuth(h.producerSecret)).Post("/inbox", h.depositInbox)

		r.Get("/files/{id}", h.getFile)
		r.Get("/files/{id}/url", h.signedURL)

		r.Route("/certificates", func(r chi.Router) {
			r.Get("/", h.listCertificates)
			r.Post("/", h.createCertificate)
			r.Post("/bulk", h.bulkCertificates)
			r.Get("/{id}", h.getCertificate)
			r.Put("/{id}/file", h.replaceCertificateFile)
			r.Delete("/{id}", h.deleteCertificate)
		})

		r.Route("/procedures", func(r chi.Router) {
			r.Get("/", h.listProcedures)
			r.Post("/", h.createProcedure)
			r.Get("/{id}", h.getProcedure)
			r.Put("/{id}/file", h.replaceProcedureFile)
			r.Delete("/{id}", h.deleteProcedure)
		})
	})
	return r
}
