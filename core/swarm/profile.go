package swarm

import "github.com/adalundhe/museswarm/core/tools"

// ProfileTool binds the character profile generator to the Muse as caller
// and the Coordinator as executor.
func ProfileTool(gen *tools.ProfileGenerator) ToolSpec {
	return ToolSpec{
		Name:        tools.ProfileToolName,
		Description: tools.ProfileToolDescription,
		Schema:      tools.ProfileSchema,
		Caller:      Muse,
		Executor:    Coordinator,
		Func:        gen.Run,
	}
}
