package serialization_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/devskit/sim/serialization"
)

type counterFields struct {
	Count int      `json:"count"`
	Label string   `json:"label"`
	Items []string `json:"items"`
}

type counterState struct {
	fields counterFields
}

func (c *counterState) Serialize() (map[string]any, error) {
	return serialization.Encode(c.fields)
}

func (c *counterState) Deserialize(data map[string]any) error {
	return serialization.Decode(data, &c.fields)
}

type counterStateV2 struct {
	counterState
}

func (c *counterStateV2) SchemaVersion() int {
	return 2
}

type nestedHolder struct {
	Inner *counterState
}

func (h *nestedHolder) Serialize() (map[string]any, error) {
	rec, err := serialization.NewRecord(h.Inner)
	if err != nil {
		return nil, err
	}

	return map[string]any{"inner": rec}, nil
}

func (h *nestedHolder) Deserialize(data map[string]any) error {
	rec, err := serialization.RecordFromMap(data["inner"])
	if err != nil {
		return err
	}

	inner, err := rec.Instantiate()
	if err != nil {
		return err
	}

	h.Inner = inner.(*counterState)

	return nil
}

var _ = Describe("Records", func() {
	It("should round trip through JSON", func() {
		s := &counterState{fields: counterFields{
			Count: 3,
			Label: "queue",
			Items: []string{"a", "b"},
		}}

		data, err := serialization.Marshal(s)
		Expect(err).NotTo(HaveOccurred())

		restored, err := serialization.Unmarshal(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(restored).To(BeAssignableToTypeOf(&counterState{}))
		Expect(restored.(*counterState).fields).To(Equal(s.fields))
	})

	It("should tag records with type and version", func() {
		rec, err := serialization.NewRecord(&counterStateV2{})
		Expect(err).NotTo(HaveOccurred())

		Expect(rec.Type).To(Equal(serialization.TypeName(&counterStateV2{})))
		Expect(rec.Version).To(Equal(2))
	})

	It("should reject a record of another type", func() {
		data, err := serialization.Marshal(&counterState{})
		Expect(err).NotTo(HaveOccurred())

		err = serialization.UnmarshalInto(data, &nestedHolder{})
		Expect(err).To(MatchError(serialization.ErrKindMismatch))
	})

	It("should reject a record of another version", func() {
		rec, err := serialization.NewRecord(&counterStateV2{})
		Expect(err).NotTo(HaveOccurred())
		rec.Version = 1

		err = rec.LoadInto(&counterStateV2{})
		Expect(err).To(MatchError(serialization.ErrVersionMismatch))
	})

	It("should fail on unknown types", func() {
		rec := &serialization.Record{Type: "nowhere.Nothing", Version: 1}

		_, err := rec.Instantiate()
		Expect(err).To(MatchError(serialization.ErrUnknownType))
	})

	It("should restore nested records", func() {
		h := &nestedHolder{Inner: &counterState{
			fields: counterFields{Count: 7},
		}}

		data, err := serialization.Marshal(h)
		Expect(err).NotTo(HaveOccurred())

		restored, err := serialization.Unmarshal(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(restored.(*nestedHolder).Inner.fields.Count).To(Equal(7))
	})

	It("should allow registering a type twice", func() {
		Expect(serialization.RegisterType(&counterState{})).To(Succeed())
		Expect(serialization.IsRegistered(
			serialization.TypeName(counterState{}))).To(BeTrue())
	})
})
