package cmd

// ExtractFlag scans args for flagname and returns its following value. When
// del is true, both tokens are removed from the returned slice. A flag in the
// last position has no value and is not matched.
func ExtractFlag(args []string, flagname string, del bool) ([]string, string, bool) {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flagname {
			value := args[i+1]
			if del {
				out := make([]string, 0, len(args)-2)
				out = append(out, args[:i]...)
				out = append(out, args[i+2:]...)
				return out, value, true
			}
			return args, value, true
		}
	}
	return args, "", false
}
