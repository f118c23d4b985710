package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/address-extractor/internal/reference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	ref, err := reference.Default()
	require.NoError(t, err)
	return New(ref, zap.NewNop())
}

func requireField(t *testing.T, addr *Address, f Field, expected string) {
	t.Helper()
	v, ok := addr.Get(f)
	require.True(t, ok, "field %s absent", f)
	assert.Equal(t, expected, v, "field %s", f)
}

func TestExtractAll_SimpleAddress(t *testing.T) {
	ex := newTestExtractor(t)

	addrs := ex.ExtractAll("13 Maple St. Phoenix, AZ 85053")
	require.Len(t, addrs, 1)
	addr := addrs[0]
	assert.True(t, addr.Valid())
	assert.NoError(t, addr.Err())
	assert.Equal(t, ErrorTag(""), addr.Tag())
	assert.Equal(t, "13 Maple St Phoenix AZ 85053", addr.String())
	assert.Empty(t, addr.Remaining())
}

func TestExtractAll_SurroundingText(t *testing.T) {
	ex := newTestExtractor(t)

	addrs := ex.ExtractAll("\n    Jason lives at 13 Maple Street Phoenix, AZ 85053 with his cats and GF.\n")
	require.Len(t, addrs, 1)
	assert.True(t, addrs[0].Valid())
	assert.Equal(t, "13 Maple Street Phoenix AZ 85053", addrs[0].String())
	assert.Equal(t, 3, addrs[0].Offset())
}

func TestExtractAll_InvalidSentence(t *testing.T) {
	ex := newTestExtractor(t)

	addrs := ex.ExtractAll("There are 13 cats at jason's house in Phoenix, AZ.")
	require.Len(t, addrs, 1)
	addr := addrs[0]
	assert.False(t, addr.Valid())
	assert.Equal(t, TagZipcodeNotFound, addr.Tag())
	assert.Equal(t, "Zipcode Not Found", addr.Message())
	assert.True(t, errors.Is(addr.Err(), ErrZipcodeNotFound))
	assert.Equal(t, "", addr.String())

	// "in" was taken as the state before the zipcode check failed.
	requireField(t, addr, FieldState, "in")
}

func TestExtractAll_MultipleAddresses(t *testing.T) {
	ex := newTestExtractor(t)

	text := `
    There are 13 cats at Jason's house in Phoenix, AZ. Jason lives at 13
    Maple St. Phoenix, Az 85053 and his mom lives at 456 Maple Cir
    Scottsdale, AZ 85255 with her BF.
    `
	addrs := ex.ExtractAll(text)
	require.Len(t, addrs, 3)

	assert.Equal(t, TagZipcodeNotFound, addrs[0].Tag())
	assert.False(t, addrs[0].Valid())

	assert.True(t, addrs[1].Valid())
	assert.Equal(t, "13 Maple St Phoenix Az 85053", addrs[1].String())

	assert.True(t, addrs[2].Valid())
	assert.Equal(t, "456 Maple Cir Scottsdale AZ 85255", addrs[2].String())

	valid := ValidOnly(addrs)
	require.Len(t, valid, 2)
	assert.Equal(t, addrs[1], valid[0])
}

func TestExtractAll_NoNumbers(t *testing.T) {
	ex := newTestExtractor(t)

	addrs := ex.ExtractAll("Some non-numbered sentence that mentions Phoenix, AZ")
	assert.NotNil(t, addrs)
	assert.Empty(t, addrs)

	assert.Empty(t, ex.ExtractAll(""))
}

func TestExtractAll_StLouis(t *testing.T) {
	ex := newTestExtractor(t)

	addrs := ex.ExtractAll("City Hall, 1200 Market St, St. Louis, MO 63103")
	require.Len(t, addrs, 1)
	addr := addrs[0]
	require.True(t, addr.Valid(), addr.Describe())

	requireField(t, addr, FieldState, "MO")
	requireField(t, addr, FieldCity, "St Louis")
	requireField(t, addr, FieldStreetNumber, "1200")
	requireField(t, addr, FieldStreetName, "Market")
	requireField(t, addr, FieldStreetType, "St")
	_, ok := addr.Direction()
	assert.False(t, ok)
	assert.Equal(t, "1200 Market St St Louis MO 63103", addr.String())
}

func TestExtractAll_Units(t *testing.T) {
	ex := newTestExtractor(t)

	addrs := ex.ExtractAll("212 N. Scottsdale Rd APT 14 Scottsdale, AZ 85255")
	require.Len(t, addrs, 1)
	addr := addrs[0]
	require.True(t, addr.Valid(), addr.Describe())

	requireField(t, addr, FieldState, "AZ")
	requireField(t, addr, FieldCity, "Scottsdale")
	requireField(t, addr, FieldStreetNumber, "212")
	requireField(t, addr, FieldDirection, "N")
	requireField(t, addr, FieldStreetName, "Scottsdale")
	requireField(t, addr, FieldStreetType, "Rd")
	requireField(t, addr, FieldUnitType, "APT")
	requireField(t, addr, FieldUnitNumber, "14")
	assert.Equal(t, "212 N Scottsdale Rd APT 14 Scottsdale AZ 85255", addr.String())
}

func TestExtractAll_HashUnitMarker(t *testing.T) {
	ex := newTestExtractor(t)

	addrs := ex.ExtractAll("Ship to 500 E Camelback Rd #14 Phoenix, AZ 85004 today")
	require.Len(t, addrs, 1)
	addr := addrs[0]
	require.True(t, addr.Valid(), addr.Describe())

	requireField(t, addr, FieldUnitType, "#")
	requireField(t, addr, FieldUnitNumber, "14")
	requireField(t, addr, FieldDirection, "E")
	assert.Equal(t, "500 E Camelback Rd # 14 Phoenix AZ 85004", addr.String())

	// The "#14" split adds a window token; the skip cursor still lands on
	// the document token after the zipcode.
	assert.Equal(t, 2, addr.Offset())
	assert.Equal(t, 10, addr.NextOffset())
}

func TestExtractAll_DashedZipcode(t *testing.T) {
	ex := newTestExtractor(t)

	addrs := ex.ExtractAll("1010 W. COTTONWOOD LN. SURPRISE, AZ 85374-3628")
	require.Len(t, addrs, 1)
	addr := addrs[0]
	require.True(t, addr.Valid(), addr.Describe())

	requireField(t, addr, FieldStreetNumber, "1010")
	requireField(t, addr, FieldStreetType, "LN")
	requireField(t, addr, FieldDirection, "W")
	requireField(t, addr, FieldStreetName, "COTTONWOOD")
	requireField(t, addr, FieldZipcode, "85374-3628")
	assert.Equal(t, "1010 W COTTONWOOD LN SURPRISE AZ 85374-3628", addr.String())
}

func TestExtractAll_MultiWordCity(t *testing.T) {
	ex := newTestExtractor(t)

	addr := ex.Parse("2110 Jackson Ave Long Island City, NY 11101")
	require.True(t, addr.Valid(), addr.Describe())
	requireField(t, addr, FieldCity, "Long Island City")
	requireField(t, addr, FieldStreetName, "Jackson")

	lo, hi, ok := addr.Position(FieldCity)
	require.True(t, ok)
	assert.Equal(t, 3, lo)
	assert.Equal(t, 6, hi)
}

func TestExtractAll_FullStateName(t *testing.T) {
	ex := newTestExtractor(t)

	addr := ex.Parse("13 Maple St Phoenix Arizona 85053")
	require.True(t, addr.Valid(), addr.Describe())
	requireField(t, addr, FieldState, "Arizona")
}

func TestParse_Failures(t *testing.T) {
	ex := newTestExtractor(t)

	testCases := []struct {
		name     string
		text     string
		expected ErrorTag
		sentinel error
	}{
		{"Bad city/state/zip combo", "13 Maple St. Phoenix, Az 11101", TagInvalidCityStateZipCombo, ErrInvalidCityStateZipCombo},
		{"Unknown zipcode", "13 Maple St. Phoenix, Az 00001", TagZipcodeNotFound, ErrZipcodeNotFound},
		{"Non numeric start", "Maple St Phoenix AZ 85053", TagInvalidStreetNumber, ErrInvalidStreetNumber},
		{"No state", "13 Maple St Phoenix", TagStateNotFound, ErrStateNotFound},
		{"Window ends at state", "13 Maple St Phoenix AZ", TagTooShort, ErrTooShort},
		{"Empty window", "", TagTooShort, ErrTooShort},
		{"No street type", "13 Maple Phoenix AZ 85053", TagNoStreetType, ErrNoStreetType},
		{"No street name", "13 St Phoenix AZ 85053", TagNoStreetName, ErrNoStreetName},
		{"Street name too long", "13 Very Long Old Winding Maple St Phoenix AZ 85053", TagStreetNameTooLong, ErrStreetNameTooLong},
		{"Unit without number", "13 Maple St Apt Phoenix AZ 85053", TagUnitTypeWithoutNumber, ErrUnitTypeWithoutNumber},
		{"Unidentified token", "13 Maple St Blah Phoenix AZ 85053", TagUnidentifiedParts, ErrUnidentifiedParts},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr := ex.Parse(tc.text)
			assert.False(t, addr.Valid())
			assert.Equal(t, tc.expected, addr.Tag())
			assert.ErrorIs(t, addr.Err(), tc.sentinel)
			assert.Equal(t, "", addr.String())
			assert.Equal(t, addr.Offset()+1, addr.NextOffset())
		})
	}
}

func TestParse_PartialFieldsOnFailure(t *testing.T) {
	ex := newTestExtractor(t)

	addrs := ex.ExtractAll("\n    13 Maple St. BadBad, Az 85053\n")
	require.Len(t, addrs, 2)
	addr := addrs[0]

	// The invalid window leaves the cursor alone, so the zipcode opens its own window.
	assert.Equal(t, 5, addrs[1].Offset())
	assert.Equal(t, TagStateNotFound, addrs[1].Tag())

	assert.Equal(t, TagInvalidCityStateZipCombo, addr.Tag())
	requireField(t, addr, FieldStreetNumber, "13")
	requireField(t, addr, FieldState, "Az")
	requireField(t, addr, FieldZipcode, "85053")
	_, ok := addr.City()
	assert.False(t, ok)
	assert.Equal(t, "13 Az 85053", addr.Render())
	assert.Contains(t, addr.Describe(), "Invalid City/State/Zipcode Combo")
}

func TestExtractAll_UnicodeWhitespace(t *testing.T) {
	ex := newTestExtractor(t)

	for _, text := range []string{
		"13\u00a0Maple St Phoenix AZ 85053",
		"13 Maple St\u00a0Phoenix,\u2003AZ 85053",
	} {
		addrs := ex.ExtractAll(text)
		require.Len(t, addrs, 1, text)
		assert.True(t, addrs[0].Valid(), addrs[0].Describe())
		assert.Equal(t, "13 Maple St Phoenix AZ 85053", addrs[0].String())
	}
}

func TestParse_StreetNameWithDirection(t *testing.T) {
	ex := newTestExtractor(t)

	addr := ex.Parse("13 N Old Winding Maple St Phoenix AZ 85053")
	require.True(t, addr.Valid(), addr.Describe())
	requireField(t, addr, FieldDirection, "N")
	requireField(t, addr, FieldStreetName, "Old Winding Maple")

	// A lone direction word is the street name itself.
	addr = ex.Parse("13 North St Phoenix AZ 85053")
	require.True(t, addr.Valid(), addr.Describe())
	requireField(t, addr, FieldStreetName, "North")
	_, ok := addr.Direction()
	assert.False(t, ok)
}

func TestParse_StreetTypeClosestToCity(t *testing.T) {
	ex := newTestExtractor(t)

	addr := ex.Parse("42 Park Ave Phoenix AZ 85004")
	require.True(t, addr.Valid(), addr.Describe())
	requireField(t, addr, FieldStreetName, "Park")
	requireField(t, addr, FieldStreetType, "Ave")
}

func TestParse_WindowIsCapped(t *testing.T) {
	ex := newTestExtractor(t)

	// The state sits at document token 16, beyond the window.
	addr := ex.Parse("13 a b c d e f g h i j k l m n o AZ 85053")
	assert.Equal(t, TagStateNotFound, addr.Tag())
	assert.Len(t, addr.Tokens(), MaxWindowTokens)
}

func TestExtractAll_SkipsConsumedTokens(t *testing.T) {
	ex := newTestExtractor(t)

	addrs := ex.ExtractAll("13 Maple St Phoenix AZ 85053 and 456 Maple Cir Scottsdale AZ 85255")
	require.Len(t, addrs, 2)
	assert.Equal(t, 0, addrs[0].Offset())
	assert.Equal(t, 6, addrs[0].NextOffset())
	assert.Equal(t, 7, addrs[1].Offset())
	for _, a := range addrs {
		assert.True(t, a.Valid(), a.Describe())
	}
}

func TestExtractAll_InvalidWindowDoesNotSkip(t *testing.T) {
	ex := newTestExtractor(t)

	addrs := ex.ExtractAll("7 cats in Phoenix. 13 Maple St Phoenix AZ 85053")
	require.Len(t, addrs, 2)
	assert.Equal(t, TagZipcodeNotFound, addrs[0].Tag())
	assert.Equal(t, 4, addrs[1].Offset())
	assert.Equal(t, "13 Maple St Phoenix AZ 85053", addrs[1].String())
}

func TestValidAddress_Invariants(t *testing.T) {
	ex := newTestExtractor(t)

	for _, addr := range ValidOnly(ex.ExtractAll(affidavitText)) {
		assert.Empty(t, addr.Remaining(), addr.Describe())
		for _, f := range RequiredFields {
			_, ok := addr.Get(f)
			assert.True(t, ok, "%s missing from %s", f, addr.Describe())
		}
	}
}

func TestValidAddress_RenderRoundTrip(t *testing.T) {
	ex := newTestExtractor(t)

	inputs := []string{
		"13 Maple St. Phoenix, AZ 85053",
		"City Hall, 1200 Market St, St. Louis, MO 63103",
		"212 N. Scottsdale Rd APT 14 Scottsdale, AZ 85255",
		"500 E Camelback Rd #14 Phoenix, AZ 85004",
		"1010 W. COTTONWOOD LN. SURPRISE, AZ 85374-3628",
	}
	for _, input := range inputs {
		valid := ValidOnly(ex.ExtractAll(input))
		require.Len(t, valid, 1, input)
		first := valid[0]

		again := ex.Parse(first.String())
		require.True(t, again.Valid(), again.Describe())
		for _, f := range Fields {
			v1, ok1 := first.Get(f)
			v2, ok2 := again.Get(f)
			assert.Equal(t, ok1, ok2, "%s presence for %q", f, input)
			assert.Equal(t, v1, v2, "%s value for %q", f, input)
		}
	}
}

func TestExtractAll_LargeText(t *testing.T) {
	ex := newTestExtractor(t)

	valid := ValidOnly(ex.ExtractAll(affidavitText))
	require.Len(t, valid, 4)
	assert.Equal(t, "156 JERRY STREET SURPRISE AZ 85374", valid[0].String())
	assert.Equal(t, "1010 W COTTONWOOD LN SURPRISE AZ 85374-3628", valid[1].String())
	assert.Equal(t, "123 JERRY STREET SURPRISE AZ 85374", valid[2].String())
	assert.Equal(t, "123 N JERRY STREET SURPRISE AZ 85374", valid[3].String())
}

func TestExtractAllParallel_MatchesSerial(t *testing.T) {
	ex := newTestExtractor(t)

	texts := []string{
		affidavitText,
		"There are 13 cats at Jason's house in Phoenix, AZ. Jason lives at 13 Maple St. Phoenix, Az 85053 and his mom lives at 456 Maple Cir Scottsdale, AZ 85255 with her BF.",
		"13 Maple St Phoenix AZ 85053 85053 12 13 14",
		"",
	}
	for _, text := range texts {
		serial := ex.ExtractAll(text)
		for _, workers := range []int{0, 1, 4} {
			parallel, err := ex.ExtractAllParallel(context.Background(), text, workers)
			require.NoError(t, err)
			require.Len(t, parallel, len(serial))
			for i := range serial {
				assert.Equal(t, serial[i].Offset(), parallel[i].Offset())
				assert.Equal(t, serial[i].Tag(), parallel[i].Tag())
				assert.Equal(t, serial[i].Render(), parallel[i].Render())
			}
		}
	}
}

func TestExtractAllParallel_Cancelled(t *testing.T) {
	ex := newTestExtractor(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ex.ExtractAllParallel(ctx, "13 Maple St Phoenix AZ 85053", 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractionError(t *testing.T) {
	err := fail(TagNoStreetType, 3)
	assert.Equal(t, "NoStreetType at position 3: No Street Type", err.Error())
	assert.ErrorIs(t, err, ErrNoStreetType)
	assert.False(t, errors.Is(err, ErrNoStreetName))
	assert.Equal(t, "StateNotFound: State Not Found", ErrStateNotFound.Error())
	assert.Equal(t, "Custom", ErrorTag("Custom").Message())
}

func TestField_String(t *testing.T) {
	assert.Equal(t, "street_direction", FieldDirection.String())
	assert.Equal(t, "zipcode", FieldZipcode.String())
	assert.Equal(t, "Field(42)", Field(42).String())
}

const affidavitText = `
        Arizona Department of Revenue â€˜
        Division of Property Valuation & Equalization
        AFFIDAVIT OF PROPERTY VALUE
        DOR Form 82162 (Rev 1f93)

        l. ASSESSORâ€™S PARCEL NUMBER(S) (Primary Parcel Number)

        (a) 501 - 23 - 109 - D

        BOOK MAP PARCEL SPLIT
        NOTE: If the sale involves multiple parcels, how many are included?
        (b) List the number of additional parcels other than the primary parcel that
        are included in sale. â€˜ 1%
        List the additional parce numbers (up to 4) below:

        (C) (d)
        (B) (0

        2. SELLERâ€™S NAME & ADDRESS:
        PUB RUB DUB, A SINGLE MAN

        156 JERRY STREET SURPRISE, AZ 85374
        3. BUYERâ€™S NAME & ADDRESS:

        BILL MANUEL JUAREZ , A SINGLE MAN AND BONIFACIO
        1010 W. COTTONWOOD LN. SURPRISE, AZ 85374-3628

        Buyer and Seller related? Yes L No __
        if yes, state relationship:
        4. ADDRESS OF PROPERTY:

        123 JERRY STREET

        SURPRISE, AZ 85374

        5. MAIL TAX BILL TO:
        JOSE M. JUAREZ S: BONAFICIO IBARRA

        123 N. JERRY STREET
        SURPRISE. AZ 85374

        6. TYPE OF PROPERTY (Check One):
        2:. Vacant Land f. Commericalllndustrial
        b. X... Single Fam. Residence g. __n Agriculture
        (3: Condo/Townhouse 11. Mobile Home
        Affixed

        d. 2-4 Plex i. i: Other, Specify:

        e. : Apartment Bldg. _

        7. RESIDENTIAL BUYERâ€™S INTENDED USE (Answer ifyou checked, b, c, d, or it above) (Check One)
        To be occupied b owner or To be rented to someone
        "faintly member. other than "family member."

        8. PARTY COMPLETING AFFiDAVI'Iâ€˜ (Norrie, Address, & Phone)

        SELLER AND BUYER HEREIN AT ADDRESSES

        SHOWN ABOVE
        Phone{ ) UNDISCLOSED

        THE UNDERSIGNED BEING DULY SWORN, ON OATH, SAYS THAT THE F0
        THE FACTS PERTAINING TO THE TRANSFER OF THE ABOVE DES IBED
        nERALD AME AL_ -.- WM
        Signature of Sellertâ€™wt 'F
        State of Arizona, County of MARICOPA
        Suogibed and sworn to before me on 1:
        O day-of":- April l A 19 99
        Notary Pub 'e

        Notary Expiration Date __"
`
