package schema

// Field catalogs for the three source row shapes. Candidate lists are in
// normalized form (lowercase alphanumerics) and ordered by priority; they
// cover the naming conventions observed across legacy gym exports.
//
// Positional fallbacks assume the most common undeclared layouts:
//
//	users:    (id, name, email, phone, ...)
//	payments: (id, user_id, package, amount, payment_date, expiry_date, status)
//
// Rows from dumps that deviate will misalign; such rows surface as skips or
// gaps in the preview diagnostics rather than as hard failures.

// Member (users table) fields.
var (
	MemberID = Field{
		Name:       "id",
		Candidates: []string{"id", "userid", "memberid", "clientid"},
		Fallback:   0,
	}
	MemberName = Field{
		Name:       "name",
		Candidates: []string{"name", "fullname", "username", "membername", "customername"},
		Fallback:   1,
	}
	MemberFirstName = Field{
		Name:       "first_name",
		Candidates: []string{"firstname", "fname", "givenname"},
		Fallback:   -1,
	}
	MemberLastName = Field{
		Name:       "last_name",
		Candidates: []string{"lastname", "lname", "surname", "familyname"},
		Fallback:   -1,
	}
	MemberEmail = Field{
		Name:       "email",
		Candidates: []string{"email", "useremail", "customeremail", "emailaddress", "mail"},
		Fallback:   2,
	}
	MemberPhone = Field{
		Name:       "phone",
		Candidates: []string{"phone", "phonenumber", "mobile", "mobileno", "contact", "telephone"},
		Fallback:   3,
	}
	MemberGender = Field{
		Name:       "gender",
		Candidates: []string{"gender", "sex"},
		Fallback:   -1,
	}
	MemberDOB = Field{
		Name:       "dob",
		Candidates: []string{"dob", "dateofbirth", "birthdate", "birthday"},
		Fallback:   -1,
	}
	MemberExpiry = Field{
		Name:       "membership_expiry",
		Candidates: []string{"membershipexpiry", "expirydate", "expiry", "validtill", "validuntil", "enddate"},
		Fallback:   -1,
	}
	MemberPackage = Field{
		Name:       "package",
		Candidates: []string{"package", "packageid", "packagename", "planid", "plan", "membershiptype", "membership"},
		Fallback:   -1,
	}
	MemberQR = Field{
		Name:       "qr_payload",
		Candidates: []string{"qrpayload", "qrcode", "qrdata", "qr", "payload"},
		Fallback:   -1,
	}
	MemberCreated = Field{
		Name:       "created_at",
		Candidates: []string{"createdat", "created", "registrationdate", "joiningdate", "joindate", "registeredon"},
		Fallback:   -1,
	}
)

// Payment (payments/subscriptions table) fields. The bare id column of a
// payment row is the payment's own key, so the user reference deliberately
// excludes the exact candidate "id".
var (
	PaymentUserID = Field{
		Name:       "user_id",
		Candidates: []string{"userid", "memberid", "customerid", "clientid"},
		Fallback:   1,
	}
	PaymentEmail = Field{
		Name:       "email",
		Candidates: []string{"email", "useremail", "customeremail", "emailaddress", "mail"},
		Fallback:   -1,
	}
	PaymentPhone = Field{
		Name:       "phone",
		Candidates: []string{"phone", "phonenumber", "mobile", "contact"},
		Fallback:   -1,
	}
	PaymentExpiry = Field{
		Name:       "expiry",
		Candidates: []string{"expirydate", "expiry", "validtill", "validuntil", "enddate", "nextbillingdate"},
		Fallback:   5,
	}
	PaymentPackage = Field{
		Name:       "package",
		Candidates: []string{"package", "packageid", "packagename", "planid", "plan", "membershiptype"},
		Fallback:   2,
	}
	PaymentStatus = Field{
		Name:       "status",
		Candidates: []string{"status", "paymentstatus", "state"},
		Fallback:   6,
	}
	PaymentGender = Field{
		Name:       "gender",
		Candidates: []string{"gender", "sex"},
		Fallback:   -1,
	}
)

// Staff fields. Staff tables reuse the member naming conventions plus an
// explicit role column on generic staff tables.
var (
	StaffRole = Field{
		Name:       "role",
		Candidates: []string{"role", "designation", "position", "jobtitle", "title"},
		Fallback:   -1,
	}
	StaffHireDate = Field{
		Name:       "hire_date",
		Candidates: []string{"hiredate", "joiningdate", "joindate", "dateofjoining", "startdate"},
		Fallback:   -1,
	}
)

// Package (plans table) fields.
var (
	PackageName = Field{
		Name:       "name",
		Candidates: []string{"name", "packagename", "planname", "title"},
		Fallback:   1,
	}
	PackagePrice = Field{
		Name:       "price",
		Candidates: []string{"price", "amount", "cost", "fee"},
		Fallback:   -1,
	}
	PackageDuration = Field{
		Name:       "duration_days",
		Candidates: []string{"durationdays", "duration", "validitydays", "validity", "days"},
		Fallback:   -1,
	}
	PackageAccess = Field{
		Name:       "access_level",
		Candidates: []string{"accesslevel", "access", "level", "tier"},
		Fallback:   -1,
	}
)
