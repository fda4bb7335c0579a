// Package pyenv locates the host's Python interpreter and drives the pip
// package installer through it.
//
// This package wraps external executables (python, pip via "python -m pip")
// using os/exec. It serves as the interpreter integration layer for the
// dialer-setup CLI.
//
// Design decisions:
//   - We shell out to the interpreter rather than linking any Python
//     embedding library: the goal is to prepare the user's own Python
//     installation, so the tool must observe exactly what a "python"
//     invocation from their shell would see.
//   - pip is always invoked as "<python> -m pip" instead of a bare "pip"
//     executable, so packages land in the interpreter that was verified,
//     not whichever pip shadows it on PATH.
//   - Process execution is injectable (see runFunc) so command construction
//     and orchestration can be tested without a Python installation.
package pyenv
