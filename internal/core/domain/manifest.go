package domain

// Manifest is a bulk declaration of commands, typically loaded from depex.yaml.
// Commands are sorted by name.
type Manifest struct {
	Commands []Command
}

// Apply declares every command of m in st. Applying the same manifest twice
// leaves st unchanged.
func (m *Manifest) Apply(st *State) error {
	for _, cmd := range m.Commands {
		if err := st.AddCommand(cmd.Name, cmd.Argv); err != nil {
			return err
		}
		if len(cmd.Reads) > 0 {
			if err := st.AddReads(cmd.Name, cmd.Reads...); err != nil {
				return err
			}
		}
		if len(cmd.Writes) > 0 {
			if err := st.AddWrites(cmd.Name, cmd.Writes...); err != nil {
				return err
			}
		}
	}
	return nil
}
