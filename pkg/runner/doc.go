/*
Package runner implements the interactive command loop of the dotmap editor.

It bridges a session (see package session) and a terminal or a JSON-Lines
pipe. Each input line is parsed into a Command, checked by a
CommandInterceptor, executed against the session editor and answered with a
Reply through an IOHandler.

# Usage

	r := runner.NewRunner(
		runner.WithSessions(session.NewManager(store)),
		runner.WithSessionID("sketch"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}

# Commands

	mode <place|connect|adjust>    click <x> <y>
	down <x> <y>   move <x> <y>    up    leave
	select <dot>   dir <dot> <deg> label <dot> [text]   color <dot> [color]
	style <conn> <solid|dashed|dotted> [color] [label]
	delete   clear   undo   redo   show   graph   history   help   exit
*/
package runner
