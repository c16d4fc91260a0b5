// Package logging is Nova's ambient logging facade. It wraps
// github.com/tliron/commonlog the way the teacher repo pulled it in for its
// LSP server, except every package gets its own named logger instead of one
// global one.
package logging

import (
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// Bootstrap configures commonlog's simple backend as the default, at the
// given verbosity (0 = errors only, higher is noisier). Call once from
// cmd/nova's root command before any subsystem logs.
func Bootstrap(verbosity int) {
	commonlog.Configure(verbosity, nil)
}

// For returns a logger scoped to a subsystem name, e.g. For("jdwp"),
// For("dap"), For("workspace"). Names are dotted for nested subsystems,
// e.g. For("dap.session").
func For(name string) commonlog.Logger {
	return commonlog.GetLogger("nova." + name)
}
