package knowledge

import (
	"fmt"

	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/tool"
)

// DefaultK is the number of chunks returned to the model.
const DefaultK = 4

type searchArgs struct {
	Query string `json:"query" description:"Pregunta del asociado, en sus propias palabras"`
}

// NewSearchTool exposes the department's documents as the tool
// "consultar_<department>".
func NewSearchTool(idx Index, department, description string) tool.Tool {
	name := "consultar_" + department

	if description == "" {
		description = fmt.Sprintf("Busca información oficial de %s para responder preguntas del asociado.", Title(department))
	}

	return tool.NewTypedTool(name, description, func(tc *core.ToolContext, in searchArgs) (any, error) {
		results, err := idx.Search(tc.Context(), department, in.Query, DefaultK)
		if err != nil {
			return nil, err
		}

		tc.LogInfo("knowledge.search", "department", department, "hits", len(results), "query_len", len(in.Query))

		return Format(department, results), nil
	})
}
