package llm

// GetMelodyDSLGrammar returns the Lark grammar definition for the Melody DSL
// used to write primers by hand:
//
//	note(pitch=C4, start=0, duration=0.5, velocity=100); note(pitch=64, start=0.5, duration=0.5)
//
// Times are in seconds. Pitch is a MIDI number or a note name (C4 = 60).
func GetMelodyDSLGrammar() string {
	return `
// Melody DSL Grammar - one note() call per note, separated by ";"

// ---------- Start rule ----------
start: melody_item (";" SP? melody_item)*

melody_item: note_call | tempo_call

// ---------- Note ----------
note_call: "note" "(" note_named_params ")"

note_named_params: note_named_param ("," SP note_named_param)*
note_named_param: "pitch" "=" (NOTE_NAME | NUMBER)
                | "start" "=" NUMBER
                | "duration" "=" NUMBER
                | "velocity" "=" NUMBER

// ---------- Tempo ----------
tempo_call: "tempo" "(" tempo_named_params ")"

tempo_named_params: tempo_named_param ("," SP tempo_named_param)*
tempo_named_param: "qpm" "=" NUMBER
                 | "time" "=" NUMBER

// ---------- Terminals ----------
NOTE_NAME: /[A-Ga-g][#b]?-?\d/
SP: " "+
NUMBER: /-?\d+(\.\d+)?/
`
}
