package gammon

// Commands are always sent from clients to the server.

const (
	CommandLogin         = "login"         // Log in. Optionally specify a username and password.
	CommandLoginJSON     = "loginjson"     // Log in and enable JSON formatted messages.
	CommandRegister      = "register"      // Register an account.
	CommandRegisterJSON  = "registerjson"  // Register an account and enable JSON formatted messages.
	CommandResetPassword = "resetpassword" // Request a password reset email.
	CommandHelp          = "help"          // Print help text.
	CommandList          = "list"          // List the available matches.
	CommandCreate        = "create"        // Create a match.
	CommandJoin          = "join"          // Join a match.
	CommandLeave         = "leave"         // Leave the current match.
	CommandBoard         = "board"         // Print the current board state.
	CommandRoll          = "roll"          // Roll the dice (also resolves the opening roll).
	CommandMove          = "move"          // Move one checker: move <from> <pip>.
	CommandUndo          = "undo"          // Undo the most recent step of this turn.
	CommandOk            = "ok"            // Commit the turn.
	CommandDouble        = "double"        // Offer the doubling cube.
	CommandTake          = "take"          // Accept a pending cube offer.
	CommandPass          = "pass"          // Decline a pending cube offer, resigning the game.
	CommandSay           = "say"           // Chat with the opponent.
	CommandSetDice       = "setdice"       // Supply dice values directly. Restricted.
	CommandPong          = "pong"          // Reply to a ping.
	CommandDisconnect    = "disconnect"    // Disconnect from the server.
)

var HelpText = map[string]string{
	CommandLogin:         "[username] [password] - Log in. A random username is assigned when none is specified.",
	CommandRegister:      "<email> <username> <password> - Register an account.",
	CommandResetPassword: "<email> - Request a password reset email.",
	CommandHelp:          "[command] - Print help text.",
	CommandList:          "- List the available matches.",
	CommandCreate:        "[name] [password] - Create a match.",
	CommandJoin:          "<id> [password] - Join a match.",
	CommandLeave:         "- Leave the current match.",
	CommandBoard:         "- Print the current board state.",
	CommandRoll:          "- Roll the dice.",
	CommandMove:          "<from> <pip> - Move one checker. Use 0 to enter from the bar.",
	CommandUndo:          "- Undo the most recent step of this turn.",
	CommandOk:            "- Commit the turn.",
	CommandDouble:        "- Offer the doubling cube.",
	CommandTake:          "- Accept a pending cube offer.",
	CommandPass:          "- Decline a pending cube offer.",
	CommandSay:           "<message> - Chat with the opponent.",
}
