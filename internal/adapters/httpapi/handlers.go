package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"treeregistry/internal/core"
	"treeregistry/pkg/domain"
)

// userView is the public shape of a user; the password hash never leaves the service.
type userView struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

func newUserView(u domain.User) userView {
	return userView{ID: u.ID, Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt}
}

type credentialsRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Scientist bool   `json:"scientist"`
}

type speciesRequest struct {
	Name              string `json:"name"`
	CarbonConsumption int    `json:"carbon_consumption"`
	OxygenProduction  int    `json:"oxygen_production"`
}

type namedRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type statusRequest struct {
	Status domain.Status `json:"status"`
}

// treeListRequest names the trees a calculation runs over. A null entry is
// passed through as a nil tree.
type treeListRequest struct {
	TreeIDs []*string `json:"tree_ids"`
	Change  string    `json:"change,omitempty"`
}

type valueResponse struct {
	Value int `json:"value"`
}

func list[T any](w http.ResponseWriter, h *Handler, items []T, err error) {
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) listTrees(w http.ResponseWriter, r *http.Request) {
	trees, err := h.svc.FindAllTrees(r.Context())
	list(w, h, trees, err)
}

func (h *Handler) createTree(w http.ResponseWriter, r *http.Request) {
	var reg core.TreeRegistration
	if err := decode(r, &reg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid tree payload")
		return
	}
	tree, err := h.svc.CreateTree(r.Context(), reg)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tree)
}

func (h *Handler) getTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.svc.GetTreeByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (h *Handler) updateTree(w http.ResponseWriter, r *http.Request) {
	var reg core.TreeRegistration
	if err := decode(r, &reg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid tree payload")
		return
	}
	tree, err := h.svc.UpdateTree(r.Context(), mux.Vars(r)["id"], reg)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (h *Handler) removeTree(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveTree(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markDiseased(w http.ResponseWriter, r *http.Request) {
	tree, err := h.svc.MarkDiseased(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (h *Handler) markToBeCut(w http.ResponseWriter, r *http.Request) {
	tree, err := h.svc.MarkToBeCut(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (h *Handler) getLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := h.svc.GetTreeLocation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (h *Handler) listSpecies(w http.ResponseWriter, r *http.Request) {
	species, err := h.svc.FindAllSpecies(r.Context())
	list(w, h, species, err)
}

func (h *Handler) createSpecies(w http.ResponseWriter, r *http.Request) {
	var req speciesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid species payload")
		return
	}
	created, err := h.svc.CreateSpecies(r.Context(), req.Name, req.CarbonConsumption, req.OxygenProduction)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) treesForSpecies(w http.ResponseWriter, r *http.Request) {
	trees, err := h.svc.GetTreesForSpecies(r.Context(), mux.Vars(r)["id"])
	list(w, h, trees, err)
}

func (h *Handler) listMunicipalities(w http.ResponseWriter, r *http.Request) {
	municipalities, err := h.svc.FindAllMunicipalities(r.Context())
	list(w, h, municipalities, err)
}

func (h *Handler) createMunicipality(w http.ResponseWriter, r *http.Request) {
	var req namedRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid municipality payload")
		return
	}
	created, err := h.svc.CreateMunicipality(r.Context(), req.Name, req.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) treesForMunicipality(w http.ResponseWriter, r *http.Request) {
	trees, err := h.svc.GetTreesForMunicipality(r.Context(), mux.Vars(r)["id"])
	list(w, h, trees, err)
}

func (h *Handler) listStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.svc.FindAllTreeStatuses(r.Context())
	list(w, h, statuses, err)
}

func (h *Handler) createStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid status payload")
		return
	}
	created, err := h.svc.CreateTreeStatus(r.Context(), req.Status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) listParks(w http.ResponseWriter, r *http.Request) {
	parks, err := h.svc.FindAllParks(r.Context())
	list(w, h, parks, err)
}

func (h *Handler) createPark(w http.ResponseWriter, r *http.Request) {
	var req namedRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid park payload")
		return
	}
	created, err := h.svc.CreatePark(r.Context(), req.Name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) listStreets(w http.ResponseWriter, r *http.Request) {
	streets, err := h.svc.FindAllStreets(r.Context())
	list(w, h, streets, err)
}

func (h *Handler) createStreet(w http.ResponseWriter, r *http.Request) {
	var req namedRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid street payload")
		return
	}
	created, err := h.svc.CreateStreet(r.Context(), req.Name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid credentials payload")
		return
	}
	user, err := h.svc.Register(r.Context(), req.Username, req.Password, req.Scientist)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserView(user))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid credentials payload")
		return
	}
	user, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	var req treeListRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid calculation payload")
		return
	}
	trees, err := h.resolveTrees(r.Context(), req.TreeIDs)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	ctx := r.Context()
	var calc func(context.Context, []*domain.Tree) (int, error)
	switch mux.Vars(r)["kind"] {
	case "oxygen":
		calc = h.svc.TotalOxygenProduction
	case "carbon":
		calc = h.svc.TotalCarbonConsumption
	case "bio-index":
		calc = h.svc.BioIndexCalculator
	case "bio-forecast":
		calc = h.svc.BioForecast
	case "statistics":
		stats, err := h.svc.TreeStatistics(ctx, trees)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
		return
	default:
		writeError(w, http.StatusNotFound, "unknown calculation")
		return
	}
	value, err := calc(ctx, trees)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, valueResponse{Value: value})
}

func (h *Handler) calculateChange(w http.ResponseWriter, r *http.Request) {
	var req treeListRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid calculation payload")
		return
	}
	trees, err := h.resolveTrees(r.Context(), req.TreeIDs)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	var value int
	switch mux.Vars(r)["kind"] {
	case "oxygen":
		value, err = h.svc.CalcChangeOxygenProd(r.Context(), trees, req.Change)
	case "carbon":
		value, err = h.svc.CalcChangeCarbonConsump(r.Context(), trees, req.Change)
	default:
		writeError(w, http.StatusNotFound, "unknown calculation")
		return
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, valueResponse{Value: value})
}

func (h *Handler) loadFile(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.LoadFile(r.Context(), r.Body); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resolveTrees looks up each ID, keeping nil for null entries and returning
// nil for a missing list so the calculators see the caller's shape.
func (h *Handler) resolveTrees(ctx context.Context, ids []*string) ([]*domain.Tree, error) {
	if ids == nil {
		return nil, nil
	}
	trees := make([]*domain.Tree, len(ids))
	for i, id := range ids {
		if id == nil {
			continue
		}
		tree, err := h.svc.GetTreeByID(ctx, *id)
		if err != nil {
			return nil, err
		}
		trees[i] = &tree
	}
	return trees, nil
}
