package safe

import (
	"kickpass/agent/client"
	"kickpass/buffer"
	kperrors "kickpass/errors"
	"kickpass/prompt"
	"kickpass/workspace"
)

// Context carries everything a safe operation needs beyond the safe
// itself: the master passphrase buffer, the workspace root, an
// optional agent connection, and a password-prompt callback (spec.md
// §4.6's "a context (which carries master password buffer, workspace
// path, optional agent handle, and a password-prompt callback)").
type Context struct {
	Workspace *workspace.Workspace
	Agent     *client.Client
	Prompt    prompt.Func
	Password  *buffer.Buffer
}

// NewContext allocates a Context's sensitive password buffer. ws must
// be non-nil; agent and promptFn may be nil (an agent-less or
// prompt-less context, respectively).
func NewContext(ws *workspace.Workspace, agent *client.Client, promptFn prompt.Func) (*Context, error) {
	pw, err := buffer.NewPassword()
	if err != nil {
		return nil, err
	}
	return &Context{Workspace: ws, Agent: agent, Prompt: promptFn, Password: pw}, nil
}

// Close wipes and releases the context's password buffer.
func (c *Context) Close() error {
	return c.Password.Close()
}

// ensurePassword fills c.Password from the prompt callback if it's
// currently empty, per spec.md §4.6 step 5 / §4.10.
func (c *Context) ensurePassword(confirm bool, purpose string) error {
	if len(c.Password.Bytes()) > 0 {
		return nil
	}
	if c.Prompt == nil {
		return kperrors.ErrNoPromptInstalled
	}
	pass, err := c.Prompt(confirm, purpose)
	if err != nil {
		return err
	}
	err = c.Password.Set(pass)
	for i := range pass {
		pass[i] = 0
	}
	return err
}

// agentConnected reports whether an agent is installed and connected.
func (c *Context) agentConnected() bool {
	return c.Agent != nil && c.Agent.Connected()
}
