package main

import (
	"context"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"

	"order-processing-service/internal/modal"
	"order-processing-service/internal/workflows"
)

type uiServer struct {
	tc client.Client
	t  *template.Template
}

type uiOrderRow struct {
	WorkflowID string
	RunID      string
	Order      modal.Order
	Steps      []string
}

type uiIndexData struct {
	Tab    string
	Query  string
	Orders []uiOrderRow
	Hits   []uiOrderRow
	Error  string
}

type uiDetailData struct {
	WorkflowID string
	RunID      string
	Order      modal.Order
	Steps      []string
	Awaiting   bool
	Error      string
}

func registerUIRoutes(r chi.Router, tc client.Client) {
	t := template.Must(template.New("base").Parse(uiTemplates))
	s := &uiServer{tc: tc, t: t}

	r.Get("/ui", s.handleIndex)
	r.Get("/ui/wf/{workflowId}", s.handleDetail)
	r.Post("/ui/wf/{workflowId}/decision", s.handleDecision)
}

// handleIndex lists running orders held at the approval gate. It also
// supports searching executions by orderId via a visibility query.
func (s *uiServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	tab := r.URL.Query().Get("tab")
	if tab == "" {
		tab = "approvals"
	}
	q := r.URL.Query().Get("q")

	data := uiIndexData{Tab: tab, Query: q}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	var query string
	switch tab {
	case "approvals":
		// Only running instances can be waiting at the gate.
		query = `ExecutionStatus = "Running" AND WorkflowType = "ProcessOrder"`
	case "search":
		// Workflow IDs are "order-<orderId>", so a prefix search on the
		// Keyword WorkflowId attribute finds executions by orderId.
		if q == "" {
			_ = s.t.ExecuteTemplate(w, "index", data)
			return
		}
		query = `WorkflowId STARTS_WITH "order-` + q + `"`
	default:
		tab = "approvals"
		data.Tab = "approvals"
		query = `ExecutionStatus = "Running" AND WorkflowType = "ProcessOrder"`
	}

	resp, err := s.tc.ListWorkflow(ctx, &workflowservice.ListWorkflowExecutionsRequest{
		Query:    query,
		PageSize: 200,
	})
	if err != nil {
		data.Error = err.Error()
		_ = s.t.ExecuteTemplate(w, "index", data)
		return
	}

	if tab == "approvals" {
		for _, ex := range resp.Executions {
			if ex.Execution == nil {
				continue
			}
			wid := ex.Execution.WorkflowId
			rid := ex.Execution.RunId

			order, steps, err := s.queryProgress(r.Context(), wid, rid)
			if err != nil {
				// Skip instances with transient query failures.
				continue
			}
			if !workflows.AwaitingApproval(order, steps) {
				continue
			}

			data.Orders = append(data.Orders, uiOrderRow{
				WorkflowID: wid,
				RunID:      rid,
				Order:      order,
				Steps:      steps,
			})

			if len(data.Orders) >= 100 {
				break
			}
		}

		_ = s.t.ExecuteTemplate(w, "index", data)
		return
	}

	for _, ex := range resp.Executions {
		if ex.Execution == nil {
			continue
		}
		data.Hits = append(data.Hits, uiOrderRow{
			WorkflowID: ex.Execution.WorkflowId,
			RunID:      ex.Execution.RunId,
		})
	}

	_ = s.t.ExecuteTemplate(w, "index", data)
}

// handleDetail shows one order: its input, completed steps, and the
// approve/reject form while it waits at the gate.
func (s *uiServer) handleDetail(w http.ResponseWriter, r *http.Request) {
	wid := chi.URLParam(r, "workflowId")
	rid := r.URL.Query().Get("runId")

	data := uiDetailData{WorkflowID: wid, RunID: rid}

	order, steps, err := s.queryProgress(r.Context(), wid, rid)
	if err != nil {
		data.Error = err.Error()
		_ = s.t.ExecuteTemplate(w, "detail", data)
		return
	}
	data.Order = order
	data.Steps = steps
	data.Awaiting = workflows.AwaitingApproval(order, steps)

	_ = s.t.ExecuteTemplate(w, "detail", data)
}

// handleDecision submits the manager decision as the ManagerApproval signal.
func (s *uiServer) handleDecision(w http.ResponseWriter, r *http.Request) {
	wid := chi.URLParam(r, "workflowId")
	rid := r.URL.Query().Get("runId")

	approved, _ := strconv.ParseBool(r.FormValue("approved"))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := s.tc.SignalWorkflow(ctx, wid, rid, workflows.ManagerApprovalSignal, approved); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/ui/wf/"+wid+"?runId="+rid, http.StatusSeeOther)
}

// queryProgress reads the order and its completed steps from the workflow's
// query handlers. UI-grade reads; no separate read model is maintained.
func (s *uiServer) queryProgress(ctx context.Context, wid, rid string) (modal.Order, []string, error) {
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	qr, err := s.tc.QueryWorkflow(cctx, wid, rid, workflows.QueryOrder)
	if err != nil {
		return modal.Order{}, nil, err
	}
	var order modal.Order
	if err := qr.Get(&order); err != nil {
		return modal.Order{}, nil, err
	}

	qr, err = s.tc.QueryWorkflow(cctx, wid, rid, workflows.QuerySteps)
	if err != nil {
		return modal.Order{}, nil, err
	}
	var steps []string
	if err := qr.Get(&steps); err != nil {
		return modal.Order{}, nil, err
	}

	return order, steps, nil
}

// uiTemplates contains the HTML templates for the dashboard pages. In a
// larger application these would live in separate .html files.
const uiTemplates = `
{{define "index"}}
<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>Order Approvals</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    .tabs a { margin-right: 12px; }
    table { border-collapse: collapse; width: 100%; margin-top: 12px; }
    th, td { border: 1px solid #ddd; padding: 8px; }
    .err { color: #b00020; }
    .muted { color: #666; }
  </style>
</head>
<body>
  <h2>Order Processing Dashboard</h2>

  <div class="tabs">
    <a href="/ui?tab=approvals">Pending Approvals</a>
    <a href="/ui?tab=search">Search</a>
  </div>

  {{if .Error}}<p class="err">{{.Error}}</p>{{end}}

  {{if eq .Tab "approvals"}}
    <h3>Orders Awaiting Manager Approval</h3>
    <p class="muted">Running high-value orders held at the approval gate (24h deadline each).</p>
    <table>
      <thead><tr><th>OrderID</th><th>Customer</th><th>Product</th><th>Amount</th><th>Workflow</th></tr></thead>
      <tbody>
      {{range .Orders}}
        <tr>
          <td>{{.Order.OrderID}}</td>
          <td>{{.Order.CustomerEmail}}</td>
          <td>{{.Order.ProductName}} x{{.Order.Quantity}}</td>
          <td>{{printf "%.2f" .Order.Amount}}</td>
          <td><a href="/ui/wf/{{.WorkflowID}}?runId={{.RunID}}">{{.WorkflowID}}</a></td>
        </tr>
      {{end}}
      </tbody>
    </table>
  {{else}}
    <h3>Search by OrderID</h3>
    <form method="get" action="/ui">
      <input type="hidden" name="tab" value="search"/>
      <input name="q" placeholder="orderId" value="{{.Query}}" style="width: 320px;"/>
      <button type="submit">Search</button>
    </form>

    {{if .Query}}
      <h4>Results</h4>
      <table>
        <thead><tr><th>Workflow</th></tr></thead>
        <tbody>
        {{range .Hits}}
          <tr>
            <td><a href="/ui/wf/{{.WorkflowID}}?runId={{.RunID}}">{{.WorkflowID}}</a></td>
          </tr>
        {{end}}
        </tbody>
      </table>
    {{end}}
  {{end}}
</body>
</html>
{{end}}

{{define "detail"}}
<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>Order Detail</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    .err { color: #b00020; }
    table { border-collapse: collapse; width: 100%; margin-top: 12px; }
    th, td { border: 1px solid #ddd; padding: 8px; }
  </style>
</head>
<body>
  <a href="/ui">&larr; Back</a>
  <h2>Order Detail</h2>

  {{if .Error}}<p class="err">{{.Error}}</p>{{end}}

  <p><b>WorkflowID:</b> {{.WorkflowID}}<br/>
     <b>RunID:</b> {{.RunID}}</p>

  <h3>Order</h3>
  <table>
    <tbody>
      <tr><th>OrderID</th><td>{{.Order.OrderID}}</td></tr>
      <tr><th>Customer</th><td>{{.Order.CustomerEmail}}</td></tr>
      <tr><th>Product</th><td>{{.Order.ProductName}} x{{.Order.Quantity}}</td></tr>
      <tr><th>Amount</th><td>{{printf "%.2f" .Order.Amount}}</td></tr>
      <tr><th>Ordered</th><td>{{.Order.OrderDate}}</td></tr>
    </tbody>
  </table>

  <h3>Completed Steps</h3>
  <table>
    <tbody>
      {{range .Steps}}<tr><td>{{.}}</td></tr>{{end}}
    </tbody>
  </table>

  {{if .Awaiting}}
    <h3>Manager Decision</h3>
    <form method="post" action="/ui/wf/{{.WorkflowID}}/decision?runId={{.RunID}}">
      <button name="approved" value="true" type="submit">Approve</button>
      <button name="approved" value="false" type="submit">Reject</button>
    </form>
  {{end}}
</body>
</html>
{{end}}
`
