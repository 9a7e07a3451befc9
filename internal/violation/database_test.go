package violation

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		dbPath string
		db     *BoltDB
	)

	newViolation := func(id, defendant string, year int, link string) *Violation {
		return &Violation{
			ID:            id,
			Defendant:     defendant,
			Plaintiff:     DefaultPlaintiff,
			Year:          year,
			Settlement:    amount("1234.56"),
			ViolationType: TypeEnvironmental,
			DataSource:    DefaultDataSource,
			Link:          link,
			CreatedAt:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		}
	}

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("Save", func() {
		var (
			v   *Violation
			err error
		)

		BeforeEach(func() {
			v = newViolation("id-1", "Acme Hog Farm LLC", 2021, "https://example.test/acme.pdf")
		})

		JustBeforeEach(func() {
			err = db.Save(v)
		})

		It("stores the violation", func() {
			Expect(err).NotTo(HaveOccurred())
			saved, getErr := db.Get("id-1")
			Expect(getErr).NotTo(HaveOccurred())
			Expect(saved.Defendant).To(Equal("Acme Hog Farm LLC"))
			Expect(saved.Settlement.StringFixed(2)).To(Equal("1234.56"))
		})

		It("claims the key", func() {
			exists, existsErr := db.Exists(v.Key())
			Expect(existsErr).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())
		})

		When("another violation has the same defendant, year and link", func() {
			BeforeEach(func() {
				Expect(db.Save(newViolation("id-0", "Acme Hog Farm LLC", 2021, "https://example.test/acme.pdf"))).To(Succeed())
			})

			It("returns ErrDuplicate", func() {
				Expect(err).To(MatchError(ErrDuplicate))
				_, getErr := db.Get("id-1")
				Expect(getErr).To(MatchError(ErrNotFound))
			})
		})

		When("the same defendant has an order in another year", func() {
			BeforeEach(func() {
				Expect(db.Save(newViolation("id-0", "Acme Hog Farm LLC", 2020, "https://example.test/acme.pdf"))).To(Succeed())
			})

			It("stores both", func() {
				Expect(err).NotTo(HaveOccurred())
				all, listErr := db.List()
				Expect(listErr).NotTo(HaveOccurred())
				Expect(all).To(HaveLen(2))
			})
		})

		When("the violation is updated with a new link", func() {
			var oldKey string

			BeforeEach(func() {
				first := newViolation("id-1", "Acme Hog Farm LLC", 2021, "https://example.test/old.pdf")
				oldKey = first.Key()
				Expect(db.Save(first)).To(Succeed())
			})

			It("releases the old key", func() {
				Expect(err).NotTo(HaveOccurred())
				exists, existsErr := db.Exists(oldKey)
				Expect(existsErr).NotTo(HaveOccurred())
				Expect(exists).To(BeFalse())
			})
		})
	})

	Describe("Get", func() {
		It("returns ErrNotFound for an unknown ID", func() {
			v, err := db.Get("nonexistent")
			Expect(err).To(MatchError(ErrNotFound))
			Expect(v).To(BeNil())
		})

		It("keeps a missing settlement as null", func() {
			v := newViolation("id-2", "Prairie Co-op", 2022, "https://example.test/coop.pdf")
			v.Settlement = nil
			Expect(db.Save(v)).To(Succeed())

			saved, err := db.Get("id-2")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Settlement).To(BeNil())
		})
	})

	Describe("List", func() {
		It("returns an empty slice when nothing is stored", func() {
			all, err := db.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(all).NotTo(BeNil())
			Expect(all).To(BeEmpty())
		})

		It("returns the newest first", func() {
			older := newViolation("a", "City of Ames", 2019, "https://example.test/ames.pdf")
			newer := newViolation("b", "Prairie Co-op", 2022, "https://example.test/coop.pdf")
			newer.CreatedAt = older.CreatedAt.Add(time.Hour)
			Expect(db.Save(older)).To(Succeed())
			Expect(db.Save(newer)).To(Succeed())

			all, err := db.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(all[0].ID).To(Equal("b"))
			Expect(all[1].ID).To(Equal("a"))
		})
	})

	Describe("Delete", func() {
		It("removes the violation and frees its key", func() {
			v := newViolation("id-1", "Acme Hog Farm LLC", 2021, "https://example.test/acme.pdf")
			Expect(db.Save(v)).To(Succeed())
			Expect(db.Delete("id-1")).To(Succeed())

			exists, err := db.Exists(v.Key())
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())
			Expect(db.Save(newViolation("id-3", "Acme Hog Farm LLC", 2021, "https://example.test/acme.pdf"))).To(Succeed())
		})

		It("returns ErrNotFound for an unknown ID", func() {
			Expect(db.Delete("nonexistent")).To(MatchError(ErrNotFound))
		})
	})

	Describe("reopening", func() {
		It("keeps stored violations", func() {
			Expect(db.Save(newViolation("id-1", "Acme Hog Farm LLC", 2021, "https://example.test/acme.pdf"))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
			v, err := db.Get("id-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Year).To(Equal(2021))
		})
	})
})
