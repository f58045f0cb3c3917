// Package savestate persists named save slots to a local sqlite
// database: the serialised memory banks plus a call-stack snapshot,
// the two pieces of runtime state spec.md §6 names as the core's own
// save/load responsibility ("Persisted state: the memory component's
// serialised form ... and the call-stack snapshot for save/load").
// Everything else a real save would capture (screen contents, audio
// state) belongs to the excluded rendering/audio backends.
package savestate

import (
	"database/sql"
	"encoding/binary"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	_ "modernc.org/sqlite"

	"github.com/ssakurai/rlvm/machine"
	"github.com/ssakurai/rlvm/memory"
	"github.com/ssakurai/rlvm/rlerr"
)

// Frame is the on-disk shape of one CallFrame: enough to rebuild the
// call stack without reaching into scriptor's live cache.
type Frame struct {
	Kind           machine.FrameKind
	ScenarioNumber int
	LocationNumber uint32
	Locals         *memory.Bank[int32]
	GosubArgs      []int32
}

// Snapshot is everything a save slot captures: the full memory bank
// catalogue and the call stack, outermost frame first.
type Snapshot struct {
	Memory *memory.Memory
	Frames []Frame
}

// Slot is one row of the save-slot table.
type Slot struct {
	ID        string
	Number    int
	Title     string
	CreatedAt time.Time
}

// Store is a sqlite-backed save-slot database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, rlerr.Wrap(rlerr.BadFormat, err, "opening save database %q", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, rlerr.Wrap(rlerr.BadFormat, err, "creating save schema")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS save_slots (
	id TEXT PRIMARY KEY,
	slot_number INTEGER NOT NULL UNIQUE,
	title TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	checksum BLOB NOT NULL,
	data BLOB NOT NULL
);`

// Save serialises snap and writes it to slotNumber, replacing whatever
// was previously stored there. The stored blob is checksummed with
// blake2b so Load can detect truncation or corruption before handing
// back a snapshot a caller would otherwise deserialize as garbage.
func (s *Store) Save(slotNumber int, title string, snap Snapshot) (Slot, error) {
	data := serializeSnapshot(snap)
	sum := blake2b.Sum256(data)

	slot := Slot{ID: uuid.NewString(), Number: slotNumber, Title: title, CreatedAt: time.Now()}

	_, err := s.db.Exec(
		`INSERT INTO save_slots (id, slot_number, title, created_at, checksum, data)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(slot_number) DO UPDATE SET
			id=excluded.id, title=excluded.title, created_at=excluded.created_at,
			checksum=excluded.checksum, data=excluded.data`,
		slot.ID, slot.Number, slot.Title, slot.CreatedAt.Unix(), sum[:], data,
	)
	if err != nil {
		return Slot{}, rlerr.Wrap(rlerr.BadFormat, err, "writing save slot %d", slotNumber)
	}
	return slot, nil
}

// Load reads slotNumber back, verifying its checksum before
// deserializing.
func (s *Store) Load(slotNumber int) (Snapshot, Slot, error) {
	var slot Slot
	var createdAt int64
	var checksum, data []byte

	row := s.db.QueryRow(
		`SELECT id, slot_number, title, created_at, checksum, data FROM save_slots WHERE slot_number = ?`,
		slotNumber,
	)
	if err := row.Scan(&slot.ID, &slot.Number, &slot.Title, &createdAt, &checksum, &data); err != nil {
		if err == sql.ErrNoRows {
			return Snapshot{}, Slot{}, rlerr.New(rlerr.NotFound, "save slot %d not found", slotNumber)
		}
		return Snapshot{}, Slot{}, rlerr.Wrap(rlerr.BadFormat, err, "reading save slot %d", slotNumber)
	}
	slot.CreatedAt = time.Unix(createdAt, 0)

	sum := blake2b.Sum256(data)
	if len(checksum) != len(sum) || string(checksum) != string(sum[:]) {
		return Snapshot{}, Slot{}, rlerr.New(rlerr.BadFormat, "save slot %d failed checksum verification", slotNumber)
	}

	snap, err := deserializeSnapshot(data)
	if err != nil {
		return Snapshot{}, Slot{}, rlerr.Wrap(rlerr.BadFormat, err, "decoding save slot %d", slotNumber)
	}
	return snap, slot, nil
}

// List returns every stored slot, ordered by slot number.
func (s *Store) List() ([]Slot, error) {
	rows, err := s.db.Query(`SELECT id, slot_number, title, created_at FROM save_slots ORDER BY slot_number`)
	if err != nil {
		return nil, rlerr.Wrap(rlerr.BadFormat, err, "listing save slots")
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		var slot Slot
		var createdAt int64
		if err := rows.Scan(&slot.ID, &slot.Number, &slot.Title, &createdAt); err != nil {
			return nil, rlerr.Wrap(rlerr.BadFormat, err, "scanning save slot row")
		}
		slot.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, slot)
	}
	return out, rows.Err()
}

// Delete removes a slot, if present. Deleting a missing slot is not an
// error.
func (s *Store) Delete(slotNumber int) error {
	_, err := s.db.Exec(`DELETE FROM save_slots WHERE slot_number = ?`, slotNumber)
	if err != nil {
		return rlerr.Wrap(rlerr.BadFormat, err, "deleting save slot %d", slotNumber)
	}
	return nil
}

// serializeSnapshot lays Snapshot out the same manually-offset way the
// teacher's own SaveState.serialize does (a magic tag, then each field
// length-prefixed in a fixed order), adapted to the bank-catalogue and
// ScriptLocation-based frame shape this machine actually has instead of
// a Z-machine program counter.
func serializeSnapshot(snap Snapshot) []byte {
	mem := memory.SerializeMemory(snap.Memory)

	var out []byte
	out = append(out, "RLSV"...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(mem)))
	out = append(out, mem...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(snap.Frames)))
	for _, f := range snap.Frames {
		out = append(out, byte(f.Kind))
		out = binary.BigEndian.AppendUint32(out, uint32(f.ScenarioNumber))
		out = binary.BigEndian.AppendUint32(out, f.LocationNumber)
		locals := memory.SerializeInt(f.Locals)
		out = binary.BigEndian.AppendUint32(out, uint32(len(locals)))
		out = append(out, locals...)
		out = binary.BigEndian.AppendUint32(out, uint32(len(f.GosubArgs)))
		for _, a := range f.GosubArgs {
			out = binary.BigEndian.AppendUint32(out, uint32(a))
		}
	}
	return out
}

func deserializeSnapshot(data []byte) (Snapshot, error) {
	if len(data) < 4 || string(data[:4]) != "RLSV" {
		return Snapshot{}, rlerr.New(rlerr.BadFormat, "bad save magic")
	}
	pos := 4

	if pos+4 > len(data) {
		return Snapshot{}, rlerr.New(rlerr.Truncated, "save memory length truncated")
	}
	memLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if pos+memLen > len(data) {
		return Snapshot{}, rlerr.New(rlerr.Truncated, "save memory blob truncated")
	}
	mem, err := memory.DeserializeMemory(data[pos : pos+memLen])
	if err != nil {
		return Snapshot{}, err
	}
	pos += memLen

	if pos+4 > len(data) {
		return Snapshot{}, rlerr.New(rlerr.Truncated, "save frame count truncated")
	}
	frameCount := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4

	frames := make([]Frame, 0, frameCount)
	for i := 0; i < frameCount; i++ {
		if pos+9 > len(data) {
			return Snapshot{}, rlerr.New(rlerr.Truncated, "save frame %d header truncated", i)
		}
		kind := machine.FrameKind(data[pos])
		pos++
		scenario := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		loc := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+4 > len(data) {
			return Snapshot{}, rlerr.New(rlerr.Truncated, "save frame %d locals length truncated", i)
		}
		localsLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+localsLen > len(data) {
			return Snapshot{}, rlerr.New(rlerr.Truncated, "save frame %d locals blob truncated", i)
		}
		locals, _, err := memory.DeserializeInt(data[pos : pos+localsLen])
		if err != nil {
			return Snapshot{}, err
		}
		pos += localsLen

		if pos+4 > len(data) {
			return Snapshot{}, rlerr.New(rlerr.Truncated, "save frame %d gosub-arg count truncated", i)
		}
		argCount := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		var args []int32
		if argCount > 0 {
			if pos+argCount*4 > len(data) {
				return Snapshot{}, rlerr.New(rlerr.Truncated, "save frame %d gosub args truncated", i)
			}
			args = make([]int32, argCount)
			for j := 0; j < argCount; j++ {
				args[j] = int32(binary.BigEndian.Uint32(data[pos : pos+4]))
				pos += 4
			}
		}

		frames = append(frames, Frame{
			Kind: kind, ScenarioNumber: scenario, LocationNumber: loc,
			Locals: locals, GosubArgs: args,
		})
	}

	return Snapshot{Memory: mem, Frames: frames}, nil
}
