package stategen

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/emicklei/dot"
	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
)

const treeTemplate = `<html>
<head>
    <script src="//cdnjs.cloudflare.com/ajax/libs/viz.js/2.1.2/viz.js"></script>
    <script src="//cdnjs.cloudflare.com/ajax/libs/viz.js/2.1.2/full.render.js"></script>
<body>
    <script type="application/javascript">
        var graph = ` + "`%s`;" + `
        var viz = new Viz();
        viz.renderSVGElement(graph)
            .then(function(element) {
                document.body.appendChild(element);
            })
            .catch(error => {
                viz = new Viz();
                console.error(error);
            });
    </script>
</head>
</body>
</html>`

// Graph renders the tracked block tree in dot format. The active tip is
// drawn green and states not yet COMPLETED are dashed.
func (p *Processor) Graph() string {
	tip := p.Tip()
	r := p.repo

	r.lock.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.lock.RUnlock()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].index.Height < entries[j].index.Height
	})

	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "RL")
	graph.Attr("labeljust", "l")

	nodes := make(map[string]dot.Node, len(entries))
	for _, e := range entries {
		id := e.index.Hash.Hex()
		label := fmt.Sprintf("height: %d\n hash: %s\n status: %s\n justified: %d\n finalized: %d",
			e.index.Height, e.index.Hash.TerminalString(), e.state.Status(),
			e.state.LastJustifiedEpoch(), e.state.LastFinalizedEpoch())
		n := graph.Node(id).Box().Attr("label", label)
		if e.state.Status() != casper.StatusCompleted {
			n = n.Attr("style", "dashed")
		}
		if tip != nil && e.index.Hash == tip.Hash {
			n = n.Attr("color", "green")
		}
		nodes[id] = n
	}
	for _, e := range entries {
		if e.index.Parent == nil {
			continue
		}
		parent, ok := nodes[e.index.Parent.Hash.Hex()]
		if !ok {
			continue
		}
		graph.Edge(nodes[e.index.Hash.Hex()], parent)
	}
	return graph.String()
}

// TreeHandler is a handler to serve /tree page in metrics.
func (p *Processor) TreeHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintf(w, treeTemplate, p.Graph()); err != nil {
		log.WithError(err).Error("Failed to render block tree page")
	}
}

// TipsHandler is a handler to serve /tips page in metrics.
func (p *Processor) TipsHandler(w http.ResponseWriter, _ *http.Request) {
	if _, err := fmt.Fprintf(w, "\n %s\t%s\t%s\t%s\t", "Height", "Hash", "Justified", "Finalized"); err != nil {
		log.WithError(err).Error("Failed to render tips page")
		return
	}
	for _, tip := range p.repo.Tips() {
		info := p.repo.ChainInfo(tip)
		if info == nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "\n %d\t%s\t%d\t%d\t", tip.Height, tip.Hash.TerminalString(),
			info.LastJustifiedEpoch, info.LastFinalizedEpoch); err != nil {
			log.WithError(err).Error("Failed to render tips page")
			return
		}
	}
}
